package models

// DefaultPoints is the rating every freshly created player starts at.
const DefaultPoints = 100

// Player is a chatter known to the bot.
type Player struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}
