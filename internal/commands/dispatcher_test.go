package commands

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// stubEngine records which orchestrator calls the dispatcher made.
type stubEngine struct {
	calls []string
}

func (s *stubEngine) record(call string) { s.calls = append(s.calls, call) }

func (s *stubEngine) Enqueue(_ context.Context, username string) (*models.Match, error) {
	s.record("enqueue " + username)
	return &models.Match{}, nil
}

func (s *stubEngine) Dequeue(_ context.Context, username string) (*models.Match, error) {
	s.record("dequeue " + username)
	return &models.Match{}, nil
}

func (s *stubEngine) QueueLine() string     { return "1/4 (alice)" }
func (s *stubEngine) ActiveMatches() []string { return nil }

func (s *stubEngine) CastVote(_ context.Context, username string, voteID int) error {
	s.record("vote")
	return nil
}

func (s *stubEngine) Pick(_ context.Context, captain, picked string) error {
	s.record("pick " + captain + " " + picked)
	return nil
}

func (s *stubEngine) ReportLoss(_ context.Context, reporter string) error {
	s.record("rl " + reporter)
	return nil
}

func (s *stubEngine) CancelMatch(_ context.Context, matchID int64, reason string) bool {
	s.record("cancel")
	return true
}

func (s *stubEngine) RequestSub(_ context.Context, username string) error {
	s.record("subme " + username)
	return nil
}

func (s *stubEngine) AcceptSub(_ context.Context, incoming, outgoing string) error {
	s.record("subfor " + incoming + " " + outgoing)
	return nil
}

func (s *stubEngine) RequestCap(_ context.Context, username string) error {
	s.record("capme " + username)
	return nil
}

func (s *stubEngine) AcceptCap(_ context.Context, incoming, outgoing string) error {
	s.record("capfor " + incoming + " " + outgoing)
	return nil
}

type stubDirectory struct{}

func (stubDirectory) FindPlayer(_ context.Context, username string) (*models.Player, error) {
	return &models.Player{Username: username, Points: 120}, nil
}

func (stubDirectory) TopPlayers(_ context.Context, limit int) ([]*models.Player, error) {
	return []*models.Player{{Username: "alice", Points: 150}, {Username: "bob", Points: 90}}, nil
}

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Say(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

func newTestDispatcher() (*Dispatcher, *stubEngine, *recorder) {
	engine := &stubEngine{}
	chat := &recorder{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewDispatcher(engine, stubDirectory{}, match.Announcer(chat), log), engine, chat
}

func TestDispatchTable(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		privileged bool
		wantCalls  []string
	}{
		{"enqueue", "++", false, []string{"enqueue alice"}},
		{"dequeue", "--", false, []string{"dequeue alice"}},
		{"vote", "!vote 2", false, []string{"vote"}},
		{"vote malformed", "!vote two", false, nil},
		{"vote missing arg", "!vote", false, nil},
		{"pick", "!pick bob", false, []string{"pick alice bob"}},
		{"pick short form", "!p bob", false, []string{"pick alice bob"}},
		{"self loss report", "!rl", false, []string{"rl alice"}},
		{"named loss report needs privilege", "!rl bob", false, nil},
		{"named loss report privileged", "!rl bob", true, []string{"rl bob"}},
		{"cancel needs privilege", "!cancelmatch 3", false, nil},
		{"cancel privileged", "!cancelmatch 3", true, []string{"cancel"}},
		{"cancel malformed id", "!cancelmatch x", true, nil},
		{"subme", "!subme", false, []string{"subme alice"}},
		{"subfor", "!subfor bob", false, []string{"subfor alice bob"}},
		{"capme", "!capme", false, []string{"capme alice"}},
		{"capfor", "!capfor bob", false, []string{"capfor alice bob"}},
		{"plain chatter ignored", "hello there", false, nil},
		{"unknown command ignored", "!dance", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, engine, _ := newTestDispatcher()
			d.OnChatMessage(context.Background(), "#chan", "alice", tt.privileged, tt.text)
			assert.Equal(t, tt.wantCalls, engine.calls)
		})
	}
}

func TestQueueLineAnnouncedAfterJoin(t *testing.T) {
	d, _, chat := newTestDispatcher()
	d.OnChatMessage(context.Background(), "#chan", "alice", false, "++")
	assert.Equal(t, []string{"1/4 (alice)"}, chat.lines)
}

func TestEloPointsQuery(t *testing.T) {
	d, _, chat := newTestDispatcher()
	d.OnChatMessage(context.Background(), "#chan", "alice", false, "!elopoints")
	assert.Equal(t, []string{"alice has 120 points"}, chat.lines)

	d.OnChatMessage(context.Background(), "#chan", "alice", false, "!elopoints bob")
	assert.Equal(t, "bob has 120 points", chat.lines[1])
}

func TestLeaderboard(t *testing.T) {
	d, _, chat := newTestDispatcher()
	d.OnChatMessage(context.Background(), "#chan", "alice", false, "!leaderboard")
	assert.Equal(t, []string{"Top players: 1. alice (150) 2. bob (90)"}, chat.lines)
}
