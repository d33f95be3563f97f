package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/henzzito/pugbot/internal/models"
)

// pickSession is the ephemeral per-match draft state. order is the pickOrder
// snapshot taken at draft start; turn indexes into it.
type pickSession struct {
	matchID   int64
	available []*models.Player
	order     string
	turn      int
	deadline  time.Duration
	timer     *time.Timer
	timerGen  int
}

// beginPickingLocked opens the draft: available players are the roster minus
// both captains. With nobody to draft (1-per-team mode) the match goes
// straight to playing.
func (o *Orchestrator) beginPickingLocked(ctx context.Context, m *models.Match) error {
	opts := o.opts()
	teams := o.teams[m.ID]
	if len(teams) != 2 {
		o.cancelLocked(ctx, m.ID, "teams missing at draft start")
		return fmt.Errorf("match %d has no teams at draft start", m.ID)
	}

	var available []*models.Player
	for _, p := range m.Players {
		if p.Username == teams[0].Captain.Username || p.Username == teams[1].Captain.Username {
			continue
		}
		available = append(available, p)
	}
	if len(available) == 0 {
		return o.startPlayingLocked(ctx, m)
	}

	sess := &pickSession{
		matchID:   m.ID,
		available: available,
		order:     opts.PickOrder,
		deadline:  time.Duration(opts.CancelPickTimeout) * time.Second,
	}
	o.picks[m.ID] = sess
	o.armPickTimerLocked(sess)

	o.announce(fmt.Sprintf("Match %d draft! Captains: %s (Team A) vs %s (Team B). Pick order: %s",
		m.ID, teams[0].Captain.Username, teams[1].Captain.Username, sess.order))
	o.announceTurnLocked(sess, teams)
	return nil
}

// Pick drafts pickedUsername onto the team whose turn it is. Calls from anyone
// but the on-turn captain are silently ignored. An unknown name resets the
// deadline and re-announces the turn without advancing it.
func (o *Orchestrator) Pick(ctx context.Context, captainUsername, pickedUsername string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.activeMatchForLocked(captainUsername)
	if m == nil {
		return ErrNoPickSession
	}
	sess := o.picks[m.ID]
	if sess == nil {
		return ErrNoPickSession
	}
	teams := o.teams[m.ID]
	team := turnTeam(sess, teams)
	if captainUsername != team.Captain.Username {
		return nil
	}

	picked := removeAvailable(sess, pickedUsername)
	if picked == nil {
		o.armPickTimerLocked(sess)
		o.announceTurnLocked(sess, teams)
		return ErrNotAvailable
	}

	team.Players = append(team.Players, picked)
	if err := o.store.SaveTeam(ctx, team); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist pick")
		return fmt.Errorf("persist pick: %w", err)
	}
	o.armPickTimerLocked(sess)
	sess.turn++

	// One player left: hand them to whichever team is on turn, no announcement
	// needed, and start playing.
	if len(sess.available) == 1 {
		last := sess.available[0]
		lastTeam := turnTeam(sess, teams)
		lastTeam.Players = append(lastTeam.Players, last)
		sess.available = nil
		if err := o.store.SaveTeam(ctx, lastTeam); err != nil {
			o.cancelLocked(ctx, m.ID, "failed to persist pick")
			return fmt.Errorf("persist pick: %w", err)
		}
		return o.startPlayingLocked(ctx, m)
	}

	o.announceTurnLocked(sess, teams)
	return nil
}

// startPlayingLocked closes the draft, announces final rosters, and (when
// stacking) schedules the channel hand-over after the grace delay.
func (o *Orchestrator) startPlayingLocked(ctx context.Context, m *models.Match) error {
	o.dropPickSessionLocked(m.ID)
	o.playing[m.ID] = true

	teams := o.teams[m.ID]
	mapName := "TBD"
	if m.Map != nil {
		mapName = m.Map.Name
	}
	o.announce(fmt.Sprintf("Match %d is live on %s! Team A: %s — Team B: %s. Captains report with !rl on a loss.",
		m.ID, mapName, rosterNames(teams[0]), rosterNames(teams[1])))

	if o.opts().StackMatches {
		o.scheduleStartNext(m.ID)
	}
	return nil
}

// armPickTimerLocked (re)starts the draft deadline. The generation counter
// makes an already-fired timer recognizably stale.
func (o *Orchestrator) armPickTimerLocked(sess *pickSession) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timerGen++
	gen := sess.timerGen
	sess.timer = time.AfterFunc(sess.deadline, func() {
		o.onPickTimeout(sess.matchID, sess, gen)
	})
}

// onPickTimeout cancels the match when a captain sits on their turn too long.
// Loses the race against any concurrent pick or resolution.
func (o *Orchestrator) onPickTimeout(matchID int64, sess *pickSession, gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.picks[matchID] != sess || sess.timerGen != gen {
		return
	}
	o.cancelLocked(context.Background(), matchID, "pick timeout")
}

func (o *Orchestrator) dropPickSessionLocked(matchID int64) {
	sess := o.picks[matchID]
	if sess == nil {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(o.picks, matchID)
}

func (o *Orchestrator) announceTurnLocked(sess *pickSession, teams []*models.Team) {
	team := turnTeam(sess, teams)
	names := make([]string, len(sess.available))
	for i, p := range sess.available {
		names[i] = p.Username
	}
	o.announce(fmt.Sprintf("Match %d: %s (Team %s) picks — !pick <name>. Available: %s",
		sess.matchID, team.Captain.Username, team.Letter, strings.Join(names, " / ")))
}

// turnTeam maps the current pick-order letter to its team.
func turnTeam(sess *pickSession, teams []*models.Team) *models.Team {
	letter := models.TeamLetter(sess.order[sess.turn : sess.turn+1])
	for _, t := range teams {
		if t.Letter == letter {
			return t
		}
	}
	return teams[0]
}

func removeAvailable(sess *pickSession, username string) *models.Player {
	for i, p := range sess.available {
		if p.Username == username {
			sess.available = append(sess.available[:i], sess.available[i+1:]...)
			return p
		}
	}
	return nil
}

func rosterNames(t *models.Team) string {
	names := make([]string, len(t.Players))
	for i, p := range t.Players {
		names[i] = p.Username
	}
	return strings.Join(names, " / ")
}
