package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henzzito/pugbot/internal/models"
)

// startVotingMatch fills a 2v2 match and returns its id plus the drawn
// candidates in vote-id order.
func startVotingMatch(t *testing.T, env *testEnv, users ...string) (int64, []*models.GameMap) {
	t.Helper()
	if len(users) == 0 {
		users = []string{"u1", "u2", "u3", "u4"}
	}
	env.enqueueAll(t, users...)

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	var matchID int64
	for id := range env.o.active {
		matchID = id
	}
	sess := env.o.votes[matchID]
	require.NotNil(t, sess, "match should be voting")
	candidates := make([]*models.GameMap, len(sess.candidates))
	copy(candidates, sess.candidates)
	return matchID, candidates
}

func TestVoteCandidatesDrawnWithoutReplacement(t *testing.T) {
	env := newTestEnv(t, nil)
	_, candidates := startVotingMatch(t, env)

	require.Len(t, candidates, 3)
	seen := map[int64]bool{}
	for _, c := range candidates {
		assert.False(t, seen[c.ID], "map %s drawn twice", c.Name)
		seen[c.ID] = true
	}
}

func TestVoteSmallPoolOffersAllMaps(t *testing.T) {
	env := newTestEnv(t, nil, "OnlyMap", "OtherMap")
	_, candidates := startVotingMatch(t, env)
	assert.Len(t, candidates, 2)
}

func TestCastVoteErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	startVotingMatch(t, env)
	ctx := context.Background()

	assert.ErrorIs(t, env.o.CastVote(ctx, "stranger", 1), ErrNotVoting)
	assert.ErrorIs(t, env.o.CastVote(ctx, "u1", 7), ErrBadVote)
	assert.ErrorIs(t, env.o.CastVote(ctx, "u1", 0), ErrBadVote)

	require.NoError(t, env.o.CastVote(ctx, "u1", 1))
	assert.ErrorIs(t, env.o.CastVote(ctx, "u1", 2), ErrDuplicateVote)
}

func TestVoteMajorityWins(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, candidates := startVotingMatch(t, env)
	ctx := context.Background()

	require.NoError(t, env.o.CastVote(ctx, "u1", 2))
	require.NoError(t, env.o.CastVote(ctx, "u2", 2))
	require.NoError(t, env.o.CastVote(ctx, "u3", 2))
	require.NoError(t, env.o.CastVote(ctx, "u4", 1))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	m := env.o.active[matchID]
	require.NotNil(t, m.Map)
	assert.Equal(t, candidates[1].Name, m.Map.Name)
	assert.Nil(t, env.o.votes[matchID], "session must be destroyed on resolution")
	assert.NotNil(t, env.o.picks[matchID], "draft should have begun")
}

func TestVoteTieResolvesAmongTiedIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, candidates := startVotingMatch(t, env)
	ctx := context.Background()

	require.NoError(t, env.o.CastVote(ctx, "u1", 1))
	require.NoError(t, env.o.CastVote(ctx, "u2", 3))
	require.NoError(t, env.o.CastVote(ctx, "u3", 1))
	require.NoError(t, env.o.CastVote(ctx, "u4", 3))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	m := env.o.active[matchID]
	require.NotNil(t, m.Map)
	// The untied candidate can never win.
	assert.NotEqual(t, candidates[1].Name, m.Map.Name)
}

func TestVoteAllOmitPicksAmongCandidates(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, candidates := startVotingMatch(t, env)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		require.NoError(t, env.o.CastVote(ctx, u, OmitVoteID))
	}

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	m := env.o.active[matchID]
	require.NotNil(t, m.Map, "an all-omit vote still selects a map")
	names := map[string]bool{}
	for _, c := range candidates {
		names[c.Name] = true
	}
	assert.True(t, names[m.Map.Name], "chosen map must be one of the offered candidates")
}

func TestVoteResolutionDeterministicWithFixedSeed(t *testing.T) {
	run := func() string {
		env := newTestEnv(t, nil)
		matchID, _ := startVotingMatch(t, env)
		ctx := context.Background()
		require.NoError(t, env.o.CastVote(ctx, "u1", 1))
		require.NoError(t, env.o.CastVote(ctx, "u2", 2))
		require.NoError(t, env.o.CastVote(ctx, "u3", 1))
		require.NoError(t, env.o.CastVote(ctx, "u4", 2))

		env.o.mu.Lock()
		defer env.o.mu.Unlock()
		return env.o.active[matchID].Map.Name
	}
	assert.Equal(t, run(), run(), "same seed and same tallies must give the same map")
}

func TestVoteResolutionStopsTimer(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	env.o.mu.Lock()
	sess := env.o.votes[matchID]
	env.o.mu.Unlock()

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		require.NoError(t, env.o.CastVote(ctx, u, 1))
	}

	// Simulate the deadline firing after resolution: a stale session loses.
	env.o.onVoteTimeout(matchID, sess)
	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.NotNil(t, env.o.active[matchID], "resolved match must not be canceled by a stale timer")
}

func TestSubDuringVoteRetractsBallot(t *testing.T) {
	env := newTestEnv(t, nil)
	matchID, _ := startVotingMatch(t, env)
	ctx := context.Background()

	require.NoError(t, env.o.CastVote(ctx, "u1", 2))
	require.NoError(t, env.o.RequestSub(ctx, "u1"))
	require.NoError(t, env.o.AcceptSub(ctx, "fresh", "u1"))

	env.o.mu.Lock()
	sess := env.o.votes[matchID]
	require.NotNil(t, sess)
	_, voted := sess.voters["u1"]
	assert.False(t, voted, "a substituted player's ballot must be retracted")
	assert.Zero(t, sess.tally[2])
	env.o.mu.Unlock()

	require.NoError(t, env.o.CastVote(ctx, "u2", 1))
	require.NoError(t, env.o.CastVote(ctx, "u3", 1))
	require.NoError(t, env.o.CastVote(ctx, "u4", 1))

	// Everyone present but the substitute has voted: the vote must wait for
	// them instead of stalling into the deadline.
	env.o.mu.Lock()
	assert.NotNil(t, env.o.votes[matchID])
	env.o.mu.Unlock()

	require.NoError(t, env.o.CastVote(ctx, "fresh", 1))

	env.o.mu.Lock()
	defer env.o.mu.Unlock()
	assert.Nil(t, env.o.votes[matchID], "vote must resolve once the full roster has voted")
	require.NotNil(t, env.o.active[matchID])
	assert.NotNil(t, env.o.active[matchID].Map)
}
