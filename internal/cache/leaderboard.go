package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// MirroredStore wraps a match.Store, shadowing rating writes into a Redis
// sorted set. Cache failures are logged and swallowed: the database stays
// authoritative.
type MirroredStore struct {
	match.Store
	rdb *redis.Client
	log *logrus.Logger
}

// NewMirroredStore returns store unchanged when rdb is nil.
func NewMirroredStore(store match.Store, rdb *redis.Client, log *logrus.Logger) match.Store {
	if rdb == nil {
		return store
	}
	return &MirroredStore{Store: store, rdb: rdb, log: log}
}

func (s *MirroredStore) CreatePlayer(ctx context.Context, username string) (*models.Player, error) {
	p, err := s.Store.CreatePlayer(ctx, username)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.Username, p.Points)
	return p, nil
}

func (s *MirroredStore) UpdatePlayerRating(ctx context.Context, playerID int64, points int) error {
	if err := s.Store.UpdatePlayerRating(ctx, playerID, points); err != nil {
		return err
	}
	// The sorted set is keyed by username, which a rating write does not carry.
	// Drop the whole key; the next Top call repopulates it from the store.
	if err := s.rdb.Del(ctx, LeaderboardKey).Err(); err != nil {
		s.log.WithError(err).Warn("leaderboard cache invalidation failed")
	}
	return nil
}

// TopPlayers returns the cached leaderboard, highest first, falling back to
// the database when the cache is cold or unreachable.
func (s *MirroredStore) TopPlayers(ctx context.Context, limit int) ([]*models.Player, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(limit-1)).Result()
	if err == nil && len(zs) > 0 {
		out := make([]*models.Player, 0, len(zs))
		for _, z := range zs {
			name, _ := z.Member.(string)
			out = append(out, &models.Player{Username: name, Points: int(z.Score)})
		}
		return out, nil
	}
	if err != nil {
		s.log.WithError(err).Warn("leaderboard cache read failed, falling back to store")
	}

	players, err := s.Store.TopPlayers(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		s.record(ctx, p.Username, p.Points)
	}
	return players, nil
}

func (s *MirroredStore) record(ctx context.Context, username string, points int) {
	err := s.rdb.ZAdd(ctx, LeaderboardKey, redis.Z{Score: float64(points), Member: username}).Err()
	if err != nil {
		s.log.WithError(err).WithField("player", username).Warn("leaderboard mirror write failed")
	}
}
