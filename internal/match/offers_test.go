package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henzzito/pugbot/internal/config"
)

func TestSubFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID := startDraftMatch(t, env)
	ctx := context.Background()

	require.NoError(t, env.o.RequestSub(ctx, "u3"))
	assert.True(t, env.chat.contains("wants a sub"))

	require.NoError(t, env.o.AcceptSub(ctx, "fresh", "u3"))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	m := env.o.active[matchID]
	assert.False(t, m.HasPlayer("u3"))
	assert.True(t, m.HasPlayer("fresh"))
	assert.Empty(t, env.o.subs)

	// The slot transfers inside the team roster too.
	for _, team := range env.o.teams[matchID] {
		assert.False(t, team.HasPlayer("u3"))
	}
}

func TestSubTransfersCaptaincy(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID := startDraftMatch(t, env)
	ctx := context.Background()

	a, _ := env.teamsOf(t, matchID)
	captain := a.Captain.Username
	require.NoError(t, env.o.RequestSub(ctx, captain))
	require.NoError(t, env.o.AcceptSub(ctx, "fresh", captain))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.Equal(t, "fresh", a.Captain.Username)
	assert.True(t, a.HasPlayer("fresh"))
}

func TestSubRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	startDraftMatch(t, env)
	ctx := context.Background()

	// Sub requests require an in-progress match.
	assert.ErrorIs(t, env.o.RequestSub(ctx, "stranger"), ErrNotParticipant)

	// No offer open for u2.
	assert.ErrorIs(t, env.o.AcceptSub(ctx, "fresh", "u2"), ErrNoOffer)

	require.NoError(t, env.o.RequestSub(ctx, "u3"))

	// A current participant cannot sub in for a teammate.
	assert.ErrorIs(t, env.o.AcceptSub(ctx, "u4", "u3"), ErrAlreadyInMatch)
}

func TestSubRejectedWhenIncomingIsInAnotherActiveMatch(t *testing.T) {
	env := newTestEnv(t, func(o *config.Options) { o.StackMatches = true })
	firstID := startDraftMatch(t, env)
	env.enqueueAll(t, "b1", "b2", "b3", "b4")
	ctx := context.Background()

	require.NoError(t, env.o.RequestSub(ctx, "u3"))
	assert.ErrorIs(t, env.o.AcceptSub(ctx, "b1", "u3"), ErrAlreadyInMatch)

	// The outgoing player stays put after the rejection.
	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.True(t, env.o.active[firstID].HasPlayer("u3"))
}

func TestSubPullsIncomingOutOfQueue(t *testing.T) {
	env := newTestEnv(t, nil)
	startDraftMatch(t, env)
	ctx := context.Background()

	_, err := env.o.Enqueue(ctx, "waiting")
	require.NoError(t, err)

	require.NoError(t, env.o.RequestSub(ctx, "u3"))
	require.NoError(t, env.o.AcceptSub(ctx, "waiting", "u3"))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	require.NotNil(t, env.o.queueing)
	assert.False(t, env.o.queueing.HasPlayer("waiting"), "sub is committed elsewhere now")
}

func TestCapFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	a, b := env.teamsOf(t, matchID)
	captain := a.Captain.Username
	require.NoError(t, env.o.RequestCap(ctx, captain))

	var successor string
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		if u != captain && u != b.Captain.Username {
			successor = u
			break
		}
	}
	require.NoError(t, env.o.AcceptCap(ctx, successor, captain))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.Equal(t, successor, a.Captain.Username)
	assert.Len(t, a.Players, 1, "roster resets to just the new captain")
	assert.Empty(t, env.o.caps)
}

func TestCapOnlyDuringVotePhase(t *testing.T) {
	env := newTestEnv(t, nil)
	startDraftMatch(t, env)

	assert.ErrorIs(t, env.o.RequestCap(context.Background(), "u1"), ErrNotVoting)
}

func TestCapRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	assert.ErrorIs(t, env.o.AcceptCap(ctx, "u1", "u2"), ErrNoOffer)

	a, b := env.teamsOf(t, matchID)
	var nonCaptain string
	env.o.mu.Lock()
	for _, p := range env.o.active[matchID].Players {
		if p.Username != a.Captain.Username && p.Username != b.Captain.Username {
			nonCaptain = p.Username
			break
		}
	}
	env.o.mu.Unlock()

	// Offer from a non-captain cannot be accepted.
	require.NoError(t, env.o.RequestCap(ctx, nonCaptain))
	assert.ErrorIs(t, env.o.AcceptCap(ctx, a.Captain.Username, nonCaptain), ErrNotCaptain)

	// Outsiders cannot claim a captaincy.
	require.NoError(t, env.o.RequestCap(ctx, a.Captain.Username))
	assert.ErrorIs(t, env.o.AcceptCap(ctx, "stranger", a.Captain.Username), ErrNotParticipant)
}

func TestSubDuringDraftSwapsDraftSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID := startDraftMatch(t, env)
	ctx := context.Background()

	a, b := env.teamsOf(t, matchID)
	var outgoing string
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		if u != a.Captain.Username && u != b.Captain.Username {
			outgoing = u
			break
		}
	}

	require.NoError(t, env.o.RequestSub(ctx, outgoing))
	require.NoError(t, env.o.AcceptSub(ctx, "fresh", outgoing))
	checkDraftInvariant(t, env, matchID)

	// The departed player is no longer draftable; their replacement is.
	assert.ErrorIs(t, env.o.Pick(ctx, a.Captain.Username, outgoing), ErrNotAvailable)
	require.NoError(t, env.o.Pick(ctx, a.Captain.Username, "fresh"))
	assert.True(t, a.HasPlayer("fresh"))
	assert.True(t, env.chat.contains("is live on"))
}

func TestSubOfOnTurnCaptainReannouncesTurn(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID := startDraftMatch(t, env)
	ctx := context.Background()

	a, _ := env.teamsOf(t, matchID)
	captain := a.Captain.Username
	require.NoError(t, env.o.RequestSub(ctx, captain))
	require.NoError(t, env.o.AcceptSub(ctx, "fresh", captain))

	assert.Contains(t, env.chat.last(), "fresh")
	assert.Contains(t, env.chat.last(), "picks")
	checkDraftInvariant(t, env, matchID)

	// The inherited captaincy comes with the pick.
	env.o.mu.Lock()
	next := env.o.picks[matchID].available[0].Username
	env.o.mu.Unlock()
	require.NoError(t, env.o.Pick(ctx, "fresh", next))
}

func TestCapOfferDiesWhenVoteResolves(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	a, b := env.teamsOf(t, matchID)
	require.NoError(t, env.o.RequestCap(ctx, a.Captain.Username))

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		require.NoError(t, env.o.CastVote(ctx, u, 1))
	}

	var successor string
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		if u != a.Captain.Username && u != b.Captain.Username {
			successor = u
			break
		}
	}
	require.NoError(t, env.o.Pick(ctx, a.Captain.Username, successor))

	// Accepting the stale offer after the draft must not touch the rosters.
	assert.ErrorIs(t, env.o.AcceptCap(ctx, successor, a.Captain.Username), ErrNoOffer)
	assert.Len(t, a.Players, 2)
	assert.Len(t, b.Players, 2)

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.Empty(t, env.o.caps, "cap offers die with the vote")
}

func TestCapRejectsRivalCaptain(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	a, b := env.teamsOf(t, matchID)
	require.NoError(t, env.o.RequestCap(ctx, a.Captain.Username))
	assert.ErrorIs(t, env.o.AcceptCap(ctx, b.Captain.Username, a.Captain.Username), ErrNotAvailable)

	// One player must never captain both teams.
	assert.NotEqual(t, a.Captain.Username, b.Captain.Username)
}
