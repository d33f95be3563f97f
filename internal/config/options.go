// Package config holds the bot's runtime options, persisted as a JSON file so
// the admin UI can rewrite them while the process is running.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrInvalidPickOrder is returned when the pick order does not balance the
// draft for the configured team size.
var ErrInvalidPickOrder = errors.New("invalid pick order")

// Options is a snapshot of the bot configuration. Callers get a copy; a new
// snapshot is taken on every update.
type Options struct {
	BottedChannel     string `json:"bottedChannel"`
	PlayersPerTeam    int    `json:"playersPerTeam"`
	PickOrder         string `json:"pickOrder"`
	GameID            int64  `json:"gameId"`
	CancelVoteTimeout int    `json:"cancelVoteTimeout"`
	CancelPickTimeout int    `json:"cancelPickTimeout"`
	RequireVotePhase  bool   `json:"requireVotePhase"`
	StackMatches      bool   `json:"stackMatches"`
}

// DefaultOptions are used when no options file exists yet.
func DefaultOptions() Options {
	return Options{
		PlayersPerTeam:    5,
		PickOrder:         "ABBABAAB",
		CancelVoteTimeout: 60,
		CancelPickTimeout: 60,
		RequireVotePhase:  true,
		StackMatches:      false,
	}
}

// Validate checks the pick order against the team size. With one player per
// team there is nothing to draft, so the order is forced to "AB" instead of
// failing. Otherwise the order must cover every non-captain slot
// (playersPerTeam*2 - 2), contain only 'A'/'B', and give each captain an equal
// share: exactly playersPerTeam-1 'A' turns.
func (o *Options) Validate() error {
	if o.PlayersPerTeam < 1 {
		return fmt.Errorf("playersPerTeam must be >= 1, got %d", o.PlayersPerTeam)
	}
	if o.PlayersPerTeam == 1 {
		o.PickOrder = "AB"
		return nil
	}
	want := o.PlayersPerTeam*2 - 2
	if len(o.PickOrder) != want {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidPickOrder, len(o.PickOrder), want)
	}
	aCount := 0
	for _, c := range o.PickOrder {
		switch c {
		case 'A':
			aCount++
		case 'B':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidPickOrder, c)
		}
	}
	if aCount != o.PlayersPerTeam-1 {
		return fmt.Errorf("%w: %d 'A' turns, want %d", ErrInvalidPickOrder, aCount, o.PlayersPerTeam-1)
	}
	return nil
}

// TeamSize is the full match capacity (both teams).
func (o Options) TeamSize() int {
	return o.PlayersPerTeam * 2
}

// Store loads and saves Options from a JSON file, handing out snapshots.
type Store struct {
	mu   sync.Mutex
	path string
	cur  Options
}

// NewStore reads the options file at path, falling back to defaults when the
// file does not exist. A malformed or invalid file is an error.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, cur: DefaultOptions()}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read options file: %w", err)
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse options file: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s.cur = opts
	return s, nil
}

// Current returns the active options snapshot.
func (s *Store) Current() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Update validates opts, persists them, and makes them the active snapshot.
func (s *Store) Update(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(opts.BottedChannel) == "" {
		return errors.New("bottedChannel must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write options file: %w", err)
	}
	s.cur = opts
	return nil
}
