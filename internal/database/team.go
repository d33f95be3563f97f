package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/henzzito/pugbot/internal/models"
)

// SaveTeam inserts the team on first save, then keeps captain and roster rows
// in sync with the in-memory state on subsequent saves.
func (s *Store) SaveTeam(ctx context.Context, t *models.Team) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if t.ID == 0 {
			err := tx.QueryRow(ctx,
				`INSERT INTO teams (match_id, letter, captain_id) VALUES ($1, $2, $3) RETURNING id`,
				t.MatchID, t.Letter, t.Captain.ID).Scan(&t.ID)
			if err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx,
				`UPDATE teams SET captain_id = $1 WHERE id = $2`, t.Captain.ID, t.ID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM team_players WHERE team_id = $1`, t.ID); err != nil {
				return err
			}
		}
		for _, p := range t.Players {
			if _, err := tx.Exec(ctx,
				`INSERT INTO team_players (team_id, player_id) VALUES ($1, $2)`, t.ID, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save team %s of match %d: %w", t.Letter, t.MatchID, err)
	}
	return nil
}

// FindTeamsByMatch loads both teams of a match with their rosters, A first.
func (s *Store) FindTeamsByMatch(ctx context.Context, matchID int64) ([]*models.Team, error) {
	q := `SELECT t.id, t.letter, t.captain_id, p.id, p.username, p.points
	      FROM teams t JOIN players p ON p.id = t.captain_id
	      WHERE t.match_id = $1 ORDER BY t.letter`
	rows, err := s.pool.Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("query teams for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		t := models.Team{MatchID: matchID, Captain: &models.Player{}}
		var captainID int64
		if err := rows.Scan(&t.ID, &t.Letter, &captainID,
			&t.Captain.ID, &t.Captain.Username, &t.Captain.Points); err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}
		teams = append(teams, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range teams {
		players, err := s.teamPlayers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Players = players
	}
	return teams, nil
}

func (s *Store) teamPlayers(ctx context.Context, teamID int64) ([]*models.Player, error) {
	q := `SELECT p.id, p.username, p.points
	      FROM team_players tp JOIN players p ON p.id = tp.player_id
	      WHERE tp.team_id = $1 ORDER BY tp.id`
	rows, err := s.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, fmt.Errorf("query roster for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.Points); err != nil {
			return nil, fmt.Errorf("scan team roster row: %w", err)
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}
