package models

// TeamLetter identifies one of the two sides of a match.
type TeamLetter string

const (
	TeamA TeamLetter = "A"
	TeamB TeamLetter = "B"
)

// Team is one side of an in-progress match. The captain is always present in
// Players as well.
type Team struct {
	ID      int64      `json:"id"`
	Letter  TeamLetter `json:"letter"`
	MatchID int64      `json:"matchId"`
	Captain *Player    `json:"captain"`
	Players []*Player  `json:"players"`
}

// HasPlayer reports whether username is on the team roster.
func (t *Team) HasPlayer(username string) bool {
	for _, p := range t.Players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// PointsSum is the team's aggregate rating.
func (t *Team) PointsSum() int {
	sum := 0
	for _, p := range t.Players {
		sum += p.Points
	}
	return sum
}
