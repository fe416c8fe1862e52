package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound       = errors.New("player not found")
	ErrInvalidWindow  = errors.New("invalid window")
	ErrCursorBackward = errors.New("game cursor cannot move backwards")
	ErrClosed         = errors.New("store closed")
)

// Postgres-specific failures.
var (
	ErrMigrationFailed = errors.New("migration failed")
	ErrTransaction     = errors.New("transaction failed")
)
