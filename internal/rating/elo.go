// Package rating computes Elo adjustments for completed matches.
package rating

import "math"

// KFactor controls how far a single result can move a team's rating.
const KFactor = 32

// TeamDeltas returns the signed rating change for the winning and losing team,
// given each team's aggregate (summed) rating. The delta is applied in full to
// every member of the team, not divided per capita.
func TeamDeltas(winnerSum, loserSum int) (winnerDelta, loserDelta int) {
	expWinner := expectedScore(winnerSum, loserSum)
	expLoser := expectedScore(loserSum, winnerSum)

	winnerDelta = int(math.Round(KFactor * (1 - expWinner)))
	loserDelta = int(math.Round(KFactor * (0 - expLoser)))
	return winnerDelta, loserDelta
}

// Apply adds delta to points, flooring the result at zero.
func Apply(points, delta int) int {
	next := points + delta
	if next < 0 {
		return 0
	}
	return next
}

// expectedScore is the standard logistic Elo expectation for a vs b.
func expectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}
