// Package match implements the pickup-match orchestration engine: the queue,
// the vote → pick → play phase machine, substitution and captaincy offers, and
// rating settlement. A single Orchestrator owns every in-flight match.
package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/henzzito/pugbot/internal/config"
	"github.com/henzzito/pugbot/internal/models"
	"github.com/henzzito/pugbot/internal/rating"
)

// startNextGrace is how long the channel stays with a match after its final
// roster announcement before the next pending match may start.
const startNextGrace = 5 * time.Second

// offer is a pending sub or cap request, keyed by the requesting username.
type offer struct {
	matchID  int64
	username string
}

// Orchestrator drives every match from queue to resolution. All match state is
// guarded by one mutex: operations on any match, including timer callbacks and
// persistence round-trips, run serialized. The channel scheduler keeps its own
// lock (see channelScheduler).
type Orchestrator struct {
	store Store
	say   Announcer
	opts  func() config.Options
	log   *logrus.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	sched    *channelScheduler
	queueing *models.Match
	active   map[int64]*models.Match
	teams    map[int64][]*models.Team
	votes    map[int64]*votingSession
	picks    map[int64]*pickSession
	playing  map[int64]bool
	subs     map[string]*offer
	caps     map[string]*offer

	// graceDelay is startNextGrace unless shortened by tests.
	graceDelay time.Duration
}

// New builds an Orchestrator. opts is called for a fresh config snapshot at
// each phase entry; rng seeds map draws and tie-breaks and may be fixed for
// deterministic tests.
func New(store Store, say Announcer, opts func() config.Options, log *logrus.Logger, rng *rand.Rand) *Orchestrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Orchestrator{
		store:      store,
		say:        say,
		opts:       opts,
		log:        log,
		rng:        rng,
		sched:      newChannelScheduler(),
		active:     make(map[int64]*models.Match),
		teams:      make(map[int64][]*models.Team),
		votes:      make(map[int64]*votingSession),
		picks:      make(map[int64]*pickSession),
		playing:    make(map[int64]bool),
		subs:       make(map[string]*offer),
		caps:       make(map[string]*offer),
		graceDelay: startNextGrace,
	}
}

// RecoverStartup cancels every match left QUEUEING/IN_PROGRESS by an unclean
// shutdown. Vote and pick state was in memory only, so those matches cannot
// resume.
func (o *Orchestrator) RecoverStartup(ctx context.Context) error {
	n, err := o.store.CancelActiveMatches(ctx)
	if err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}
	if n > 0 {
		o.log.WithField("matches", n).Warn("canceled unresolved matches from previous run")
	}
	return nil
}

// CancelAll bulk-cancels every queueing and in-progress match, clears all
// ephemeral state, and frees the channel. Used on config change.
func (o *Orchestrator) CancelAll(ctx context.Context, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Empty the pending queue first so cancelling the channel occupant cannot
	// promote a match we are about to cancel anyway.
	o.sched.ClearPending()
	o.sched.ReleaseAny()

	ids := make([]int64, 0, len(o.active)+1)
	if o.queueing != nil {
		ids = append(ids, o.queueing.ID)
	}
	for id := range o.active {
		ids = append(ids, id)
	}
	for _, id := range ids {
		o.cancelLocked(ctx, id, reason)
	}

	if _, err := o.store.CancelActiveMatches(ctx); err != nil {
		o.log.WithError(err).Error("failed to cancel persisted matches")
	}
}

// CancelMatch cancels a single match. Returns true if the match was live and
// is now canceled, false if the id is unknown or already terminal. This is the
// single cleanup funnel: every unrecoverable error path routes through here.
func (o *Orchestrator) CancelMatch(ctx context.Context, matchID int64, reason string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelLocked(ctx, matchID, reason)
}

// cancelLocked implements CancelMatch with o.mu held.
func (o *Orchestrator) cancelLocked(ctx context.Context, matchID int64, reason string) bool {
	m := o.lookupLocked(matchID)
	if m == nil {
		return false
	}

	m.Status = models.StatusCanceled
	if o.queueing != nil && o.queueing.ID == matchID {
		o.queueing = nil
	}
	delete(o.active, matchID)
	delete(o.teams, matchID)
	delete(o.playing, matchID)
	o.dropVoteSessionLocked(matchID)
	o.dropPickSessionLocked(matchID)
	o.revokeOffersLocked(matchID)

	if err := o.store.SetMatchStatus(ctx, matchID, models.StatusCanceled); err != nil {
		o.log.WithError(err).WithField("match", matchID).Error("failed to persist cancellation")
	}
	if err := o.store.SoftDeleteMatch(ctx, matchID); err != nil {
		o.log.WithError(err).WithField("match", matchID).Error("failed to soft-delete match")
	}

	o.announce(fmt.Sprintf("Match %d canceled: %s", matchID, reason))
	o.log.WithFields(logrus.Fields{"match": matchID, "reason": reason}).Info("match canceled")

	// A pending match never occupied the channel; anything else might have.
	if !o.sched.RemovePending(matchID) {
		o.sched.Release(matchID)
		o.startNextLocked(ctx)
	}
	return true
}

// StartMatch transitions a full match to IN_PROGRESS: captain selection, team
// creation, then voting (or direct map selection) — or the pending queue when
// stacking is on and the channel is occupied.
func (o *Orchestrator) StartMatch(ctx context.Context, m *models.Match) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startMatchLocked(ctx, m)
}

func (o *Orchestrator) startMatchLocked(ctx context.Context, m *models.Match) error {
	opts := o.opts()

	m.Status = models.StatusInProgress
	if o.queueing != nil && o.queueing.ID == m.ID {
		o.queueing = nil
	}
	o.active[m.ID] = m
	if err := o.store.SetMatchStatus(ctx, m.ID, models.StatusInProgress); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist match start")
		return fmt.Errorf("persist match start: %w", err)
	}

	// A match promoted from the pending queue already has its teams.
	if len(o.teams[m.ID]) != 2 {
		teams, err := o.buildTeamsLocked(ctx, m)
		if err != nil {
			o.cancelLocked(ctx, m.ID, "captain selection failed")
			return err
		}
		o.teams[m.ID] = teams
	}

	if opts.StackMatches && !o.sched.TryAcquire(m.ID) {
		o.sched.EnqueuePending(m)
		o.announce(fmt.Sprintf("Match %d is ready and waiting for the current match to finish", m.ID))
		return nil
	}
	if !opts.StackMatches {
		o.sched.TryAcquire(m.ID)
	}
	return o.beginPhasesLocked(ctx, m)
}

// beginPhasesLocked kicks off voting, or skips straight to a random map when
// voting is disabled by configuration.
func (o *Orchestrator) beginPhasesLocked(ctx context.Context, m *models.Match) error {
	opts := o.opts()
	if opts.RequireVotePhase {
		return o.beginVotingLocked(ctx, m)
	}
	return o.selectMapDirectlyLocked(ctx, m)
}

// buildTeamsLocked selects the two highest-rated players as captains (stable
// queue order breaks ties, earlier enqueue wins) and persists one team per
// letter, each holding only its captain.
func (o *Orchestrator) buildTeamsLocked(ctx context.Context, m *models.Match) ([]*models.Team, error) {
	if len(m.Players) < 2 {
		return nil, fmt.Errorf("need at least 2 players to pick captains, have %d", len(m.Players))
	}

	ranked := make([]*models.Player, len(m.Players))
	copy(ranked, m.Players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})

	teams := []*models.Team{
		{Letter: models.TeamA, MatchID: m.ID, Captain: ranked[0], Players: []*models.Player{ranked[0]}},
		{Letter: models.TeamB, MatchID: m.ID, Captain: ranked[1], Players: []*models.Player{ranked[1]}},
	}
	for _, t := range teams {
		if err := o.store.SaveTeam(ctx, t); err != nil {
			return nil, fmt.Errorf("persist team %s: %w", t.Letter, err)
		}
	}
	m.Teams = teams
	return teams, nil
}

// StartNext frees the channel and starts the next pending match, if any.
func (o *Orchestrator) StartNext(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sched.ReleaseAny()
	o.startNextLocked(ctx)
}

func (o *Orchestrator) startNextLocked(ctx context.Context) {
	next := o.sched.PopPending()
	if next == nil {
		return
	}
	if err := o.startMatchLocked(ctx, next); err != nil {
		o.log.WithError(err).WithField("match", next.ID).Error("failed to start pending match")
	}
}

// scheduleStartNext hands the channel over after the grace delay so the final
// roster announcement is not immediately buried by the next match.
func (o *Orchestrator) scheduleStartNext(matchID int64) {
	time.AfterFunc(o.graceDelay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.sched.Release(matchID)
		o.startNextLocked(context.Background())
	})
}

// ReportLoss settles a played match. reporter must be one of the captains; the
// reporter's team is scored as the loser. Every member of a team moves by the
// same signed delta, floored at zero.
func (o *Orchestrator) ReportLoss(ctx context.Context, reporter string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, teams := o.matchForCaptainLocked(reporter)
	if m == nil {
		return ErrNotCaptain
	}
	// Only a match that finished its draft is settleable; matches still voting,
	// picking, or waiting in the pending queue are not.
	if !o.playing[m.ID] {
		return ErrNotPlaying
	}

	var loser, winner *models.Team
	for _, t := range teams {
		if t.Captain.Username == reporter {
			loser = t
		} else {
			winner = t
		}
	}

	winnerDelta, loserDelta := rating.TeamDeltas(winner.PointsSum(), loser.PointsSum())
	apply := func(t *models.Team, delta int) error {
		for _, p := range t.Players {
			p.Points = rating.Apply(p.Points, delta)
			if err := o.store.UpdatePlayerRating(ctx, p.ID, p.Points); err != nil {
				return fmt.Errorf("persist rating for %s: %w", p.Username, err)
			}
		}
		return nil
	}
	if err := apply(winner, winnerDelta); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist ratings")
		return err
	}
	if err := apply(loser, loserDelta); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist ratings")
		return err
	}

	m.Status = models.StatusEnded
	delete(o.active, m.ID)
	delete(o.teams, m.ID)
	delete(o.playing, m.ID)
	o.revokeOffersLocked(m.ID)
	if err := o.store.SetMatchStatus(ctx, m.ID, models.StatusEnded); err != nil {
		o.log.WithError(err).WithField("match", m.ID).Error("failed to persist match end")
	}

	o.announce(fmt.Sprintf("Match %d over! Team %s wins: %+d points each. Team %s: %+d points each.",
		m.ID, winner.Letter, winnerDelta, loser.Letter, loserDelta))
	o.log.WithFields(logrus.Fields{
		"match": m.ID, "winner": winner.Letter, "winnerDelta": winnerDelta, "loserDelta": loserDelta,
	}).Info("match ended")

	if !o.sched.RemovePending(m.ID) {
		o.sched.Release(m.ID)
		o.startNextLocked(ctx)
	}
	return nil
}

// ActiveMatches returns one describing line per live match, for !who.
func (o *Orchestrator) ActiveMatches() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]int64, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]string, 0, len(ids)+1)
	if o.queueing != nil {
		lines = append(lines, fmt.Sprintf("Match %d: queueing (%d/%d)",
			o.queueing.ID, len(o.queueing.Players), o.opts().TeamSize()))
	}
	for _, id := range ids {
		phase := "waiting"
		switch {
		case o.votes[id] != nil:
			phase = "voting"
		case o.picks[id] != nil:
			phase = "picking"
		case o.playing[id]:
			phase = "playing"
		}
		lines = append(lines, fmt.Sprintf("Match %d: %s", id, phase))
	}
	return lines
}

// lookupLocked finds a non-terminal match by id.
func (o *Orchestrator) lookupLocked(matchID int64) *models.Match {
	if o.queueing != nil && o.queueing.ID == matchID {
		return o.queueing
	}
	return o.active[matchID]
}

// activeMatchForLocked returns the queueing or in-progress match rostering
// username, or nil.
func (o *Orchestrator) activeMatchForLocked(username string) *models.Match {
	if o.queueing != nil && o.queueing.HasPlayer(username) {
		return o.queueing
	}
	for _, m := range o.active {
		if m.HasPlayer(username) {
			return m
		}
	}
	return nil
}

// matchForCaptainLocked finds the in-progress match captained by username.
func (o *Orchestrator) matchForCaptainLocked(username string) (*models.Match, []*models.Team) {
	for id, teams := range o.teams {
		for _, t := range teams {
			if t.Captain.Username == username {
				return o.active[id], teams
			}
		}
	}
	return nil, nil
}

// findOrCreatePlayerLocked resolves username against the store, registering
// first-time chatters with the default rating.
func (o *Orchestrator) findOrCreatePlayerLocked(ctx context.Context, username string) (*models.Player, error) {
	p, err := o.store.FindPlayer(ctx, username)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return o.store.CreatePlayer(ctx, username)
}

// revokeOffersLocked drops every sub/cap offer tied to matchID. Keys are
// snapshotted first so deletion does not race the iteration.
func (o *Orchestrator) revokeOffersLocked(matchID int64) {
	for _, reg := range []map[string]*offer{o.subs, o.caps} {
		names := make([]string, 0, len(reg))
		for name, off := range reg {
			if off.matchID == matchID {
				names = append(names, name)
			}
		}
		for _, name := range names {
			delete(reg, name)
		}
	}
}

func (o *Orchestrator) announce(text string) {
	if o.say != nil {
		o.say.Say(text)
	}
}
