package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/henzzito/pugbot/internal/models"
)

// OmitVoteID is the reserved vote id for abstaining.
const OmitVoteID = 4

// maxCandidates caps how many maps are offered per vote.
const maxCandidates = 3

// votingSession is the ephemeral per-match vote state. It exists only while
// the match is voting and is destroyed on resolution or cancellation.
type votingSession struct {
	matchID    int64
	candidates []*models.GameMap // vote-id i+1 -> candidates[i]
	tally      map[int]int
	voters     map[string]int // username -> vote id, so a substitution can retract it
	timer      *time.Timer
}

// beginVotingLocked draws up to three candidate maps at random and opens the
// vote, arming the deadline that cancels the match if voting stalls.
func (o *Orchestrator) beginVotingLocked(ctx context.Context, m *models.Match) error {
	opts := o.opts()

	pool, err := o.store.FindMapsForGame(ctx, opts.GameID)
	if err != nil {
		o.cancelLocked(ctx, m.ID, "failed to load map pool")
		return fmt.Errorf("load map pool: %w", err)
	}
	if len(pool) == 0 {
		o.cancelLocked(ctx, m.ID, "no maps configured")
		return fmt.Errorf("no maps configured for game %d", opts.GameID)
	}

	n := maxCandidates
	if len(pool) < n {
		n = len(pool)
	}
	candidates := make([]*models.GameMap, 0, n)
	for _, idx := range o.rng.Perm(len(pool))[:n] {
		candidates = append(candidates, pool[idx])
	}

	sess := &votingSession{
		matchID:    m.ID,
		candidates: candidates,
		tally:      make(map[int]int),
		voters:     make(map[string]int),
	}
	o.votes[m.ID] = sess
	sess.timer = time.AfterFunc(time.Duration(opts.CancelVoteTimeout)*time.Second, func() {
		o.onVoteTimeout(m.ID, sess)
	})

	parts := make([]string, 0, len(candidates)+1)
	for i, mp := range candidates {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, mp.Name))
	}
	parts = append(parts, fmt.Sprintf("[%d] omit", OmitVoteID))
	o.announce(fmt.Sprintf("Match %d map vote — !vote <n>: %s", m.ID, strings.Join(parts, " ")))
	return nil
}

// CastVote records username's vote. The vote resolves as soon as every match
// participant has voted; until then the deadline timer keeps running.
func (o *Orchestrator) CastVote(ctx context.Context, username string, voteID int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.activeMatchForLocked(username)
	if m == nil {
		return ErrNotVoting
	}
	sess := o.votes[m.ID]
	if sess == nil {
		return ErrNotVoting
	}
	if voteID != OmitVoteID && (voteID < 1 || voteID > len(sess.candidates)) {
		return ErrBadVote
	}
	if _, voted := sess.voters[username]; voted {
		return ErrDuplicateVote
	}

	sess.voters[username] = voteID
	sess.tally[voteID]++
	if len(sess.voters) >= len(m.Players) {
		return o.resolveVoteLocked(ctx, m, sess)
	}
	return nil
}

// resolveVoteLocked picks the winning map: the highest-tallied real candidate,
// a uniform draw among ties, or a uniform draw among all candidates when every
// vote was an omit. It then persists the map and advances to the draft.
func (o *Orchestrator) resolveVoteLocked(ctx context.Context, m *models.Match, sess *votingSession) error {
	o.dropVoteSessionLocked(m.ID)

	best := 0
	var tied []int
	for id := 1; id <= len(sess.candidates); id++ {
		switch count := sess.tally[id]; {
		case count == 0:
		case count > best:
			best = count
			tied = []int{id}
		case count == best:
			tied = append(tied, id)
		}
	}

	var winner *models.GameMap
	if len(tied) == 0 {
		winner = sess.candidates[o.rng.Intn(len(sess.candidates))]
	} else {
		winner = sess.candidates[tied[o.rng.Intn(len(tied))]-1]
	}

	if err := o.store.SetMatchMap(ctx, m.ID, winner.ID); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist map choice")
		return fmt.Errorf("persist map choice: %w", err)
	}
	m.Map = winner
	o.announce(fmt.Sprintf("Match %d map: %s", m.ID, winner.Name))

	return o.beginPickingLocked(ctx, m)
}

// selectMapDirectlyLocked replaces the vote when requireVotePhase is off: one
// uniform draw from the pool.
func (o *Orchestrator) selectMapDirectlyLocked(ctx context.Context, m *models.Match) error {
	opts := o.opts()
	pool, err := o.store.FindMapsForGame(ctx, opts.GameID)
	if err != nil {
		o.cancelLocked(ctx, m.ID, "failed to load map pool")
		return fmt.Errorf("load map pool: %w", err)
	}
	if len(pool) == 0 {
		o.cancelLocked(ctx, m.ID, "no maps configured")
		return fmt.Errorf("no maps configured for game %d", opts.GameID)
	}

	chosen := pool[o.rng.Intn(len(pool))]
	if err := o.store.SetMatchMap(ctx, m.ID, chosen.ID); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist map choice")
		return fmt.Errorf("persist map choice: %w", err)
	}
	m.Map = chosen
	o.announce(fmt.Sprintf("Match %d map: %s", m.ID, chosen.Name))

	return o.beginPickingLocked(ctx, m)
}

// onVoteTimeout fires when the vote deadline elapses. A session that already
// resolved (or a match canceled meanwhile) left o.votes pointing elsewhere, so
// the stale timer loses the race and does nothing.
func (o *Orchestrator) onVoteTimeout(matchID int64, sess *votingSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.votes[matchID] != sess {
		return
	}
	o.cancelLocked(context.Background(), matchID, "vote timeout")
}

// dropVoteSessionLocked stops the deadline timer and deletes the session.
// Captaincy offers are voting-phase only, so they die with it.
func (o *Orchestrator) dropVoteSessionLocked(matchID int64) {
	sess := o.votes[matchID]
	if sess == nil {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(o.votes, matchID)

	for name, off := range o.caps {
		if off.matchID == matchID {
			delete(o.caps, name)
		}
	}
}
