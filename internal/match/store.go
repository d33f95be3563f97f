package match

import (
	"context"

	"github.com/henzzito/pugbot/internal/models"
)

// Store is the persistence boundary of the orchestrator. Lookups that match no
// row return ErrNotFound. The orchestrator holds its lock across these calls,
// so implementations must not call back into it.
type Store interface {
	FindPlayer(ctx context.Context, username string) (*models.Player, error)
	CreatePlayer(ctx context.Context, username string) (*models.Player, error)
	UpdatePlayerRating(ctx context.Context, playerID int64, points int) error
	TopPlayers(ctx context.Context, limit int) ([]*models.Player, error)

	CreateMatch(ctx context.Context) (*models.Match, error)
	FindLatestQueueing(ctx context.Context) (*models.Match, error)
	SaveMatchPlayers(ctx context.Context, m *models.Match) error
	SetMatchStatus(ctx context.Context, matchID int64, status models.MatchStatus) error
	SetMatchMap(ctx context.Context, matchID, mapID int64) error
	SoftDeleteMatch(ctx context.Context, matchID int64) error

	SaveTeam(ctx context.Context, t *models.Team) error
	FindTeamsByMatch(ctx context.Context, matchID int64) ([]*models.Team, error)

	FindMapsForGame(ctx context.Context, gameID int64) ([]*models.GameMap, error)

	// CancelActiveMatches marks every QUEUEING/IN_PROGRESS row CANCELED and
	// soft-deletes it. Used for startup recovery and config changes.
	CancelActiveMatches(ctx context.Context) (int64, error)
}

// Announcer delivers outbound lines to the botted chat channel.
type Announcer interface {
	Say(text string)
}

// AnnouncerFunc adapts a function to the Announcer interface.
type AnnouncerFunc func(text string)

func (f AnnouncerFunc) Say(text string) { f(text) }
