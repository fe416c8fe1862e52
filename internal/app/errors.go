package service

import "errors"

var (
	ErrNotFound     = errors.New("player not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnknownBoard = errors.New("unknown leaderboard")
	ErrNotStarted   = errors.New("service not started")
)
