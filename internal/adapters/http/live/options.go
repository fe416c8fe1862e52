package live

import (
	"errors"

	"github.com/okian/wordleboard/pkg/logger"
)

// ErrStopped is returned by Send after the hub has shut down.
var ErrStopped = errors.New("live hub stopped")

// Option configures a Hub.
type Option func(*Hub)

func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l.Named("live")
		}
	}
}
