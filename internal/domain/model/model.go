// Package model contains domain models passed between layers.
package model

import "time"

// Score bounds. A failed puzzle ("X") is stored as FailedScore so it orders
// strictly after every solved score.
const (
	MinScore    = 1
	MaxScore    = 6
	FailedScore = 7

	// HistogramBuckets holds one bucket per score value 1..7.
	HistogramBuckets = FailedScore
)

// ValidScore reports whether s is a storable score.
func ValidScore(s int) bool { return s >= MinScore && s <= FailedScore }

// Message is one inbound chat message as delivered by the chat callback.
type Message struct {
	ID         string    // callback message id, used for idempotency
	SenderID   string    // opaque player identifier
	Name       string    // display name at send time
	Text       string    // free text
	SenderType string    // "user", "bot", "system"
	CreatedAt  time.Time // zero when the transport does not provide one
}

// FromBot reports whether the message was posted by a bot, including this one.
func (m Message) FromBot() bool { return m.SenderType == "bot" }

// ScoreRecord is one player's result for one game.
type ScoreRecord struct {
	PlayerID string
	Score    int
	Game     int
}

// Player is a registered participant.
type Player struct {
	ID   string
	Name string
}

// Rating is a Bayesian skill estimate.
type Rating struct {
	Mu    float64
	Sigma float64
}

// DefaultRating is the prior every new player starts with.
func DefaultRating() Rating { return Rating{Mu: 25.0, Sigma: 25.0 / 3.0} }
