// Package repository persists players, scores, window aggregates, ratings and
// cursors behind a unit-of-work interface.
package repository

import (
	"context"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Store runs units of work against the bot's state.
type Store interface {
	// Update runs fn in one read-write unit of work. Changes become visible
	// only if fn returns nil; any error discards all of them.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx ReadTx) error) error
	// Close releases the store's resources.
	Close() error
}

// ReadTx exposes the read side of a unit of work.
type ReadTx interface {
	// PlayerName returns ErrNotFound for unseen players.
	PlayerName(ctx context.Context, playerID string) (string, error)
	PlayerCount(ctx context.Context) (int, error)
	// Stats returns ErrNotFound for unseen players.
	Stats(ctx context.Context, playerID string) (model.PlayerStats, error)

	// Standings lists players with at least one game in w, best (lowest)
	// average first, ties by player id.
	Standings(ctx context.Context, w model.Window) ([]model.Standing, error)
	// DailyScores lists the daily working set for game.
	DailyScores(ctx context.Context, game int) ([]model.ScoreRecord, error)
	// Ratings returns every player's rating with its display name.
	Ratings(ctx context.Context) ([]model.RatedPlayer, error)

	GameCursor(ctx context.Context) (int, error)
	WeekCursor(ctx context.Context) (int, error)
}

// Tx is a read-write unit of work.
type Tx interface {
	ReadTx

	// EnsurePlayer creates the player with zeroed aggregates and the prior
	// rating, or overwrites the display name of a known player.
	EnsurePlayer(ctx context.Context, playerID, name string) (created bool, err error)

	// RecordDaily stores a score in the permanent history. It returns false
	// without changing anything when the player already has a score for
	// game. Scores for the active game also enter the daily working set and
	// the daily aggregate.
	RecordDaily(ctx context.Context, playerID string, score, game int) (recorded bool, err error)
	// RecordCumulative folds a score into the weekly or all-time aggregate.
	RecordCumulative(ctx context.Context, playerID string, score int, w model.Window) error
	// ResetWindow zeroes every aggregate in w. The all-time window is
	// rejected with ErrInvalidWindow.
	ResetWindow(ctx context.Context, w model.Window) error
	// ClearDailyScores empties the daily working set.
	ClearDailyScores(ctx context.Context) error

	PutRating(ctx context.Context, playerID string, r model.Rating) error

	SetGameCursor(ctx context.Context, game int) error
	SetWeekCursor(ctx context.Context, week int) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
