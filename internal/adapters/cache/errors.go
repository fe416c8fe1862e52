package cache

import "errors"

var (
	ErrUnavailable  = errors.New("cache: redis unavailable")
	ErrPublish      = errors.New("cache: publish failed")
	ErrInvalidLimit = errors.New("cache: limit must be positive")
	ErrInvalidBoard = errors.New("cache: unknown board")
)
