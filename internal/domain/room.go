package domain

// Room represents a chat room. Tracked counts the bot replies the cleaner
// still holds for it.
type Room struct {
	Name      string `json:"name"`
	UserCount int    `json:"user_count"`
	Tracked   int    `json:"tracked"`
}

// Tracked lists the bot messages the cleaner keeps for a room, oldest first.
type Tracked struct {
	Room  string  `json:"room"`
	Limit int     `json:"limit"`
	IDs   []int64 `json:"ids"`
}
