package models

// Game is a title the bot can run pickups for (e.g. a specific shooter).
type Game struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GameMap is a playable map belonging to a Game.
type GameMap struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	GameID int64  `json:"gameId"`
}
