package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamDeltasEvenTeams(t *testing.T) {
	winnerDelta, loserDelta := TeamDeltas(300, 300)

	// Evenly rated teams: expectation 0.5 each, so the whole K swing splits in half.
	assert.Equal(t, 16, winnerDelta)
	assert.Equal(t, -16, loserDelta)
}

func TestTeamDeltasSymmetric(t *testing.T) {
	winnerDelta, loserDelta := TeamDeltas(500, 300)
	assert.Greater(t, winnerDelta, 0)
	assert.Less(t, loserDelta, 0)

	// The favorite winning moves ratings less than an upset would.
	upsetWinnerDelta, upsetLoserDelta := TeamDeltas(300, 500)
	assert.Greater(t, upsetWinnerDelta, winnerDelta)
	assert.Less(t, upsetLoserDelta, loserDelta)
}

func TestTeamDeltasBounded(t *testing.T) {
	winnerDelta, loserDelta := TeamDeltas(2000, 0)
	assert.GreaterOrEqual(t, winnerDelta, 0)
	assert.LessOrEqual(t, winnerDelta, KFactor)
	assert.LessOrEqual(t, loserDelta, 0)
	assert.GreaterOrEqual(t, loserDelta, -KFactor)
}

func TestApplyFloorsAtZero(t *testing.T) {
	assert.Equal(t, 84, Apply(100, -16))
	assert.Equal(t, 0, Apply(10, -16))
	assert.Equal(t, 116, Apply(100, 16))
}
