package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// FindPlayer looks a player up by username. Returns match.ErrNotFound when no
// such player exists.
func (s *Store) FindPlayer(ctx context.Context, username string) (*models.Player, error) {
	var p models.Player
	q := `SELECT id, username, points FROM players WHERE username = $1`
	err := s.pool.QueryRow(ctx, q, username).Scan(&p.ID, &p.Username, &p.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player %s: %w", username, err)
	}
	return &p, nil
}

// CreatePlayer registers a first-time chatter with the default rating.
func (s *Store) CreatePlayer(ctx context.Context, username string) (*models.Player, error) {
	p := &models.Player{Username: username, Points: models.DefaultPoints}
	q := `INSERT INTO players (username, points) VALUES ($1, $2) RETURNING id`
	if err := s.pool.QueryRow(ctx, q, p.Username, p.Points).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("create player %s: %w", username, err)
	}
	return p, nil
}

// UpdatePlayerRating writes a settled rating back.
func (s *Store) UpdatePlayerRating(ctx context.Context, playerID int64, points int) error {
	q := `UPDATE players SET points = $1 WHERE id = $2`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, points, playerID)
		return err
	})
	if err != nil {
		return fmt.Errorf("update rating for player %d: %w", playerID, err)
	}
	return nil
}

// TopPlayers returns the highest-rated players, for the leaderboard.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]*models.Player, error) {
	q := `SELECT id, username, points FROM players ORDER BY points DESC, username ASC LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query top players: %w", err)
	}
	defer rows.Close()

	var out []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.Points); err != nil {
			return nil, fmt.Errorf("scan top player: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
