package models

import "time"

// MatchStatus tracks a match through its lifecycle. ENDED and CANCELED are final.
type MatchStatus string

const (
	StatusQueueing   MatchStatus = "QUEUEING"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusEnded      MatchStatus = "ENDED"
	StatusCanceled   MatchStatus = "CANCELED"
)

// Match is a single pickup game. Players keeps queue order; Map is nil until the
// vote resolves; Teams is empty until the match fills.
type Match struct {
	ID        int64       `json:"id"`
	Status    MatchStatus `json:"status"`
	Players   []*Player   `json:"players"`
	Map       *GameMap    `json:"map,omitempty"`
	Teams     []*Team     `json:"teams,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
}

// HasPlayer reports whether username is on the match roster.
func (m *Match) HasPlayer(username string) bool {
	for _, p := range m.Players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// RemovePlayer drops username from the roster, preserving order. Returns the
// removed player, or nil if they were not rostered.
func (m *Match) RemovePlayer(username string) *Player {
	for i, p := range m.Players {
		if p.Username == username {
			m.Players = append(m.Players[:i], m.Players[i+1:]...)
			return p
		}
	}
	return nil
}
