package bot

import "time"

// Subscription is a single (server, game, user) triple.
type Subscription struct {
	ServerID  string
	Game      string // normalized slug
	UserID    string
	CreatedAt time.Time
}

// GameCount is an active game together with its subscriber count.
type GameCount struct {
	Game        string
	Subscribers int
}
