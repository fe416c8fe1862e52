package cache

import (
	"time"

	"github.com/okian/wordleboard/pkg/logger"
)

// Option configures a Mirror.
type Option func(*Mirror)

// WithTTL sets how long mirrored keys live without a refresh.
func WithTTL(ttl time.Duration) Option {
	return func(m *Mirror) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}
