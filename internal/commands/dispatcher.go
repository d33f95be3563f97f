// Package commands maps inbound chat text onto orchestrator calls. Command
// errors are logged, sometimes announced, and never fatal; malformed input is
// silently ignored.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/models"
)

// Engine is the slice of the orchestrator the dispatcher drives.
type Engine interface {
	Enqueue(ctx context.Context, username string) (*models.Match, error)
	Dequeue(ctx context.Context, username string) (*models.Match, error)
	QueueLine() string
	ActiveMatches() []string
	CastVote(ctx context.Context, username string, voteID int) error
	Pick(ctx context.Context, captainUsername, pickedUsername string) error
	ReportLoss(ctx context.Context, reporter string) error
	CancelMatch(ctx context.Context, matchID int64, reason string) bool
	RequestSub(ctx context.Context, username string) error
	AcceptSub(ctx context.Context, incoming, outgoing string) error
	RequestCap(ctx context.Context, username string) error
	AcceptCap(ctx context.Context, incoming, outgoing string) error
}

// Directory answers player rating queries.
type Directory interface {
	FindPlayer(ctx context.Context, username string) (*models.Player, error)
	TopPlayers(ctx context.Context, limit int) ([]*models.Player, error)
}

// leaderboardSize is how many players !leaderboard shows.
const leaderboardSize = 10

// Dispatcher is the chat command surface.
type Dispatcher struct {
	engine  Engine
	players Directory
	say     match.Announcer
	log     *logrus.Logger
}

func NewDispatcher(engine Engine, players Directory, say match.Announcer, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{engine: engine, players: players, say: say, log: log}
}

// OnChatMessage handles one inbound chat line. privileged marks moderators and
// the broadcaster.
func (d *Dispatcher) OnChatMessage(ctx context.Context, channel, username string, privileged bool, text string) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "++"):
		d.enqueue(ctx, username)
		return
	case strings.HasPrefix(text, "--"):
		d.dequeue(ctx, username)
		return
	}
	if !strings.HasPrefix(text, "!") {
		return
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "!queue", "!q":
		d.say.Say(d.engine.QueueLine())
	case "!who":
		lines := d.engine.ActiveMatches()
		if len(lines) == 0 {
			d.say.Say("No active matches")
			return
		}
		d.say.Say(strings.Join(lines, " | "))
	case "!vote":
		if len(args) != 1 {
			return
		}
		voteID, err := strconv.Atoi(args[0])
		if err != nil {
			return
		}
		if err := d.engine.CastVote(ctx, username, voteID); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("vote rejected")
		}
	case "!pick", "!p":
		if len(args) != 1 {
			return
		}
		if err := d.engine.Pick(ctx, username, args[0]); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("pick rejected")
		}
	case "!rl":
		target := username
		if len(args) == 1 {
			if !privileged {
				return
			}
			target = args[0]
		}
		if err := d.engine.ReportLoss(ctx, target); err != nil {
			d.log.WithError(err).WithField("user", target).Debug("loss report rejected")
		}
	case "!cancelmatch":
		if !privileged || len(args) != 1 {
			return
		}
		matchID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return
		}
		d.engine.CancelMatch(ctx, matchID, fmt.Sprintf("canceled by %s", username))
	case "!elopoints":
		target := username
		if len(args) == 1 {
			target = args[0]
		}
		d.elopoints(ctx, target)
	case "!subme":
		if err := d.engine.RequestSub(ctx, username); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("sub request rejected")
		}
	case "!subfor":
		if len(args) != 1 {
			return
		}
		if err := d.engine.AcceptSub(ctx, username, args[0]); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("sub accept rejected")
		}
	case "!capme":
		if err := d.engine.RequestCap(ctx, username); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("cap request rejected")
		}
	case "!capfor":
		if len(args) != 1 {
			return
		}
		if err := d.engine.AcceptCap(ctx, username, args[0]); err != nil {
			d.log.WithError(err).WithField("user", username).Debug("cap accept rejected")
		}
	case "!leaderboard", "!elolb":
		d.leaderboard(ctx)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, username string) {
	if _, err := d.engine.Enqueue(ctx, username); err != nil {
		d.log.WithError(err).Warnf("%s could not join the queue", username)
		return
	}
	d.say.Say(d.engine.QueueLine())
}

func (d *Dispatcher) dequeue(ctx context.Context, username string) {
	if _, err := d.engine.Dequeue(ctx, username); err != nil {
		d.log.WithError(err).Warnf("%s was not in the queue", username)
		return
	}
	d.say.Say(d.engine.QueueLine())
}

func (d *Dispatcher) elopoints(ctx context.Context, username string) {
	p, err := d.players.FindPlayer(ctx, username)
	if err != nil {
		d.log.WithError(err).WithField("user", username).Debug("elo lookup failed")
		return
	}
	d.say.Say(fmt.Sprintf("%s has %d points", p.Username, p.Points))
}

func (d *Dispatcher) leaderboard(ctx context.Context) {
	players, err := d.players.TopPlayers(ctx, leaderboardSize)
	if err != nil {
		d.log.WithError(err).Error("leaderboard lookup failed")
		return
	}
	if len(players) == 0 {
		d.say.Say("No rated players yet")
		return
	}
	entries := make([]string, len(players))
	for i, p := range players {
		entries[i] = fmt.Sprintf("%d. %s (%d)", i+1, p.Username, p.Points)
	}
	d.say.Say("Top players: " + strings.Join(entries, " "))
}
