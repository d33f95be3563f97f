package match

import (
	"sync"

	"github.com/henzzito/pugbot/internal/models"
)

// channelScheduler serializes chat usage across matches when stacking is
// enabled: only the occupant match announces; full matches that arrive while
// the channel is busy wait in a FIFO. It carries its own lock because it is
// process-wide state, independent of any one match.
type channelScheduler struct {
	mu       sync.Mutex
	busy     bool
	occupant int64
	pending  []*models.Match
}

func newChannelScheduler() *channelScheduler {
	return &channelScheduler{}
}

// TryAcquire claims the channel for matchID. Returns false if another match
// already holds it.
func (s *channelScheduler) TryAcquire(matchID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy && s.occupant != matchID {
		return false
	}
	s.busy = true
	s.occupant = matchID
	return true
}

// Release frees the channel if matchID is the occupant. Releasing on behalf of
// a non-occupant is a no-op so stale callers cannot steal the channel.
func (s *channelScheduler) Release(matchID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy && s.occupant == matchID {
		s.busy = false
		s.occupant = 0
	}
}

// ReleaseAny unconditionally frees the channel. Used by bulk cancellation.
func (s *channelScheduler) ReleaseAny() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.occupant = 0
}

// EnqueuePending appends m to the wait list.
func (s *channelScheduler) EnqueuePending(m *models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, m)
}

// PopPending removes and returns the head of the wait list, or nil.
func (s *channelScheduler) PopPending() *models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	m := s.pending[0]
	s.pending = s.pending[1:]
	return m
}

// RemovePending drops matchID from the wait list. Returns true if it was there.
func (s *channelScheduler) RemovePending(matchID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.pending {
		if m.ID == matchID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// ClearPending empties the wait list.
func (s *channelScheduler) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}
