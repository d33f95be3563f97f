package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// CreateGame registers a title the bot can run pickups for.
func (s *Store) CreateGame(ctx context.Context, name string) (*models.Game, error) {
	g := &models.Game{Name: name}
	q := `INSERT INTO games (name) VALUES ($1) RETURNING id`
	if err := s.pool.QueryRow(ctx, q, name).Scan(&g.ID); err != nil {
		return nil, fmt.Errorf("create game %s: %w", name, err)
	}
	return g, nil
}

// ListGames returns every non-deleted game.
func (s *Store) ListGames(ctx context.Context) ([]*models.Game, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM games WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []*models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// DeleteGame soft-deletes a game.
func (s *Store) DeleteGame(ctx context.Context, gameID int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE games SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, gameID); err != nil {
		return fmt.Errorf("delete game %d: %w", gameID, err)
	}
	return nil
}

// CreateMap adds a map to a game's pool.
func (s *Store) CreateMap(ctx context.Context, name string, gameID int64) (*models.GameMap, error) {
	m := &models.GameMap{Name: name, GameID: gameID}
	q := `INSERT INTO maps (name, game_id) VALUES ($1, $2) RETURNING id`
	if err := s.pool.QueryRow(ctx, q, name, gameID).Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("create map %s: %w", name, err)
	}
	return m, nil
}

// FindMapsForGame returns the candidate pool the vote draws from.
func (s *Store) FindMapsForGame(ctx context.Context, gameID int64) ([]*models.GameMap, error) {
	q := `SELECT id, name, game_id FROM maps WHERE game_id = $1 AND deleted_at IS NULL ORDER BY id`
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("list maps for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []*models.GameMap
	for rows.Next() {
		var m models.GameMap
		if err := rows.Scan(&m.ID, &m.Name, &m.GameID); err != nil {
			return nil, fmt.Errorf("scan map row: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// FindMap fetches a single map.
func (s *Store) FindMap(ctx context.Context, mapID int64) (*models.GameMap, error) {
	var m models.GameMap
	q := `SELECT id, name, game_id FROM maps WHERE id = $1 AND deleted_at IS NULL`
	err := s.pool.QueryRow(ctx, q, mapID).Scan(&m.ID, &m.Name, &m.GameID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find map %d: %w", mapID, err)
	}
	return &m, nil
}

// DeleteMap soft-deletes a map; running votes keep their drawn candidates.
func (s *Store) DeleteMap(ctx context.Context, mapID int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE maps SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, mapID); err != nil {
		return fmt.Errorf("delete map %d: %w", mapID, err)
	}
	return nil
}
