package simulate

import "time"

// Config holds configuration for a simulated group chat.
type Config struct {
	BaseURL   string        // Base URL of the bot
	Players   int           // Number of simulated players
	Days      int           // Number of puzzles to play
	StartGame int           // First puzzle number
	Turnout   float64       // Chance a player posts on a given day, 0..1
	Chatter   int           // Unrelated messages per day
	Seed      int64         // Faker seed; 0 picks one from the clock
	Workers   int           // Concurrent posters within a day
	Timeout   time.Duration // HTTP request timeout
	TopN      int           // Rows fetched per leaderboard
	Verbose   bool          // Log every callback
}

// Player is one simulated group member.
type Player struct {
	ID   string `json:"user_id"`
	Name string `json:"name"`
	// Skill biases the guess distribution; higher solves faster.
	Skill float64 `json:"-"`
}

// Callback is the payload GroupMe posts to the bot.
type Callback struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	SenderType string `json:"sender_type"`
	System     bool   `json:"system"`
	CreatedAt  int64  `json:"created_at"`
}

// Entry is a window leaderboard row as served by the bot.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Games    int     `json:"games"`
	Average  float64 `json:"average"`
}

// RatingEntry is a skill leaderboard row as served by the bot.
type RatingEntry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Exposure float64 `json:"exposure"`
}

// AckResponse is the webhook reply.
type AckResponse struct {
	Status    string `json:"status"`
	Kind      string `json:"kind"`
	Duplicate bool   `json:"duplicate"`
	Replayed  bool   `json:"replayed"`
}

// Stats holds run statistics.
type Stats struct {
	MessagesPosted int
	Scores         int
	Commands       int
	Ignored        int
	Duplicates     int
	Replayed       int
	Failed         int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
