package match

import (
	"context"
	"fmt"

	"github.com/henzzito/pugbot/internal/models"
)

// RequestSub opens a substitution offer: username wants out of their
// in-progress match. At most one sub offer per username.
func (o *Orchestrator) RequestSub(ctx context.Context, username string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.inProgressMatchForLocked(username)
	if m == nil {
		return ErrNotParticipant
	}
	o.subs[username] = &offer{matchID: m.ID, username: username}
	o.announce(fmt.Sprintf("%s wants a sub for match %d — take their spot with !subfor %s", username, m.ID, username))
	return nil
}

// AcceptSub swaps incoming for outgoing in both the match roster and the team
// roster. Captaincy transfers with the slot. The incoming player is pulled out
// of the open queue if they were waiting there.
func (o *Orchestrator) AcceptSub(ctx context.Context, incoming, outgoing string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	off := o.subs[outgoing]
	if off == nil {
		return ErrNoOffer
	}
	m := o.active[off.matchID]
	if m == nil {
		delete(o.subs, outgoing)
		return ErrNoOffer
	}
	if o.inProgressMatchForLocked(incoming) != nil {
		return ErrAlreadyInMatch
	}
	if m.HasPlayer(incoming) {
		return ErrAlreadyInMatch
	}

	sub, err := o.findOrCreatePlayerLocked(ctx, incoming)
	if err != nil {
		return fmt.Errorf("resolve player %s: %w", incoming, err)
	}

	replaceInRoster(m.Players, outgoing, sub)
	var team *models.Team
	for _, t := range o.teams[m.ID] {
		if t.HasPlayer(outgoing) {
			team = t
			break
		}
	}
	if team != nil {
		replaceInRoster(team.Players, outgoing, sub)
		if team.Captain.Username == outgoing {
			team.Captain = sub
		}
		if err := o.store.SaveTeam(ctx, team); err != nil {
			o.cancelLocked(ctx, m.ID, "failed to persist substitution")
			return fmt.Errorf("persist substitution: %w", err)
		}
	}
	if err := o.store.SaveMatchPlayers(ctx, m); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist substitution")
		return fmt.Errorf("persist substitution: %w", err)
	}

	// In-flight phase state must track the swap: a mid-draft sub takes the
	// outgoing player's draftable slot, and a mid-vote sub gets the outgoing
	// player's ballot back.
	if sess := o.picks[m.ID]; sess != nil {
		replaceInRoster(sess.available, outgoing, sub)
	}
	if vs := o.votes[m.ID]; vs != nil {
		if id, ok := vs.voters[outgoing]; ok {
			delete(vs.voters, outgoing)
			vs.tally[id]--
		}
	}

	// The sub is committed to this match now; drop them from the forming queue.
	if o.queueing != nil && o.queueing.HasPlayer(incoming) {
		o.queueing.RemovePlayer(incoming)
		if err := o.store.SaveMatchPlayers(ctx, o.queueing); err != nil {
			o.log.WithError(err).Error("failed to persist queue after substitution")
		}
	}

	delete(o.subs, outgoing)
	o.announce(fmt.Sprintf("%s subs in for %s in match %d", incoming, outgoing, m.ID))

	// A sub that inherited the on-turn captaincy needs to know it is their pick.
	if sess := o.picks[m.ID]; sess != nil && team != nil && team.Captain == sub {
		if turnTeam(sess, o.teams[m.ID]) == team {
			o.announceTurnLocked(sess, o.teams[m.ID])
		}
	}
	return nil
}

// RequestCap opens a captaincy hand-over offer. Only allowed while the match
// is still voting: once picks begin, the captain is locked in.
func (o *Orchestrator) RequestCap(ctx context.Context, username string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.inProgressMatchForLocked(username)
	if m == nil {
		return ErrNotParticipant
	}
	if o.votes[m.ID] == nil {
		return ErrNotVoting
	}
	o.caps[username] = &offer{matchID: m.ID, username: username}
	o.announce(fmt.Sprintf("%s offers their captaincy in match %d — claim it with !capfor %s", username, m.ID, username))
	return nil
}

// AcceptCap transfers outgoing's captaincy to incoming, who must already be a
// participant of the same match. The team roster resets to just the new
// captain, mirroring the nothing-picked-yet state of the voting phase.
func (o *Orchestrator) AcceptCap(ctx context.Context, incoming, outgoing string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	off := o.caps[outgoing]
	if off == nil {
		return ErrNoOffer
	}
	m := o.active[off.matchID]
	if m == nil {
		delete(o.caps, outgoing)
		return ErrNoOffer
	}
	// Captaincy transfers are a voting-phase feature; a dangling offer after
	// resolution must not reset a mid-draft roster.
	if o.votes[m.ID] == nil {
		delete(o.caps, outgoing)
		return ErrNotVoting
	}
	if !m.HasPlayer(incoming) {
		return ErrNotParticipant
	}

	var team *models.Team
	for _, t := range o.teams[m.ID] {
		if t.Captain.Username == outgoing {
			team = t
			break
		}
	}
	if team == nil {
		return ErrNotCaptain
	}
	for _, t := range o.teams[m.ID] {
		if t != team && t.Captain.Username == incoming {
			return ErrNotAvailable
		}
	}

	var newCaptain *models.Player
	for _, p := range m.Players {
		if p.Username == incoming {
			newCaptain = p
			break
		}
	}
	team.Captain = newCaptain
	team.Players = []*models.Player{newCaptain}
	if err := o.store.SaveTeam(ctx, team); err != nil {
		o.cancelLocked(ctx, m.ID, "failed to persist captaincy transfer")
		return fmt.Errorf("persist captaincy transfer: %w", err)
	}

	delete(o.caps, outgoing)
	o.announce(fmt.Sprintf("%s takes over as Team %s captain in match %d", incoming, team.Letter, m.ID))
	return nil
}

// inProgressMatchForLocked resolves username to their IN_PROGRESS match,
// excluding the forming queue.
func (o *Orchestrator) inProgressMatchForLocked(username string) *models.Match {
	for _, m := range o.active {
		if m.HasPlayer(username) {
			return m
		}
	}
	return nil
}

// replaceInRoster swaps the player named outgoing for sub, keeping the slot.
func replaceInRoster(roster []*models.Player, outgoing string, sub *models.Player) {
	for i, p := range roster {
		if p.Username == outgoing {
			roster[i] = sub
			return
		}
	}
}
