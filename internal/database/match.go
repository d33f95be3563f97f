package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// CreateMatch inserts a fresh QUEUEING match.
func (s *Store) CreateMatch(ctx context.Context) (*models.Match, error) {
	m := &models.Match{Status: models.StatusQueueing}
	q := `INSERT INTO matches (status) VALUES ($1) RETURNING id, created_at`
	if err := s.pool.QueryRow(ctx, q, m.Status).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

// FindLatestQueueing returns the newest QUEUEING match with its roster in
// queue order, or match.ErrNotFound.
func (s *Store) FindLatestQueueing(ctx context.Context) (*models.Match, error) {
	var m models.Match
	q := `SELECT id, status, created_at FROM matches
	      WHERE status = $1 AND deleted_at IS NULL
	      ORDER BY id DESC LIMIT 1`
	err := s.pool.QueryRow(ctx, q, models.StatusQueueing).Scan(&m.ID, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find queueing match: %w", err)
	}

	players, err := s.matchPlayers(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.Players = players
	return &m, nil
}

// SaveMatchPlayers replaces the match's roster rows with the in-memory list,
// keeping queue order in the position column.
func (s *Store) SaveMatchPlayers(ctx context.Context, m *models.Match) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM match_players WHERE match_id = $1`, m.ID); err != nil {
			return err
		}
		for i, p := range m.Players {
			_, err := tx.Exec(ctx,
				`INSERT INTO match_players (match_id, player_id, position) VALUES ($1, $2, $3)`,
				m.ID, p.ID, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save roster for match %d: %w", m.ID, err)
	}
	return nil
}

// SetMatchStatus advances the persisted lifecycle state.
func (s *Store) SetMatchStatus(ctx context.Context, matchID int64, status models.MatchStatus) error {
	if _, err := s.pool.Exec(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, matchID); err != nil {
		return fmt.Errorf("set match %d status %s: %w", matchID, status, err)
	}
	return nil
}

// SetMatchMap records the vote's winning map.
func (s *Store) SetMatchMap(ctx context.Context, matchID, mapID int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE matches SET map_id = $1 WHERE id = $2`, mapID, matchID); err != nil {
		return fmt.Errorf("set match %d map %d: %w", matchID, mapID, err)
	}
	return nil
}

// SoftDeleteMatch stamps deleted_at; the row survives for history queries.
func (s *Store) SoftDeleteMatch(ctx context.Context, matchID int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE matches SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, matchID); err != nil {
		return fmt.Errorf("soft-delete match %d: %w", matchID, err)
	}
	return nil
}

// CancelActiveMatches sweeps every QUEUEING/IN_PROGRESS row into CANCELED.
func (s *Store) CancelActiveMatches(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $1, deleted_at = now()
		 WHERE status IN ($2, $3) AND deleted_at IS NULL`,
		models.StatusCanceled, models.StatusQueueing, models.StatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("cancel active matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) matchPlayers(ctx context.Context, matchID int64) ([]*models.Player, error) {
	q := `SELECT p.id, p.username, p.points
	      FROM match_players mp JOIN players p ON p.id = mp.player_id
	      WHERE mp.match_id = $1 ORDER BY mp.position`
	rows, err := s.pool.Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("query roster for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.Points); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}
