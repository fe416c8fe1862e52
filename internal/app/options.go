package service

import (
	"time"

	workerpool "github.com/okian/wordleboard/internal/adapters/mq/worker"
	"github.com/okian/wordleboard/internal/adapters/repository"
	"github.com/okian/wordleboard/internal/domain/rating"
	"github.com/okian/wordleboard/internal/domain/rollover"
	"github.com/okian/wordleboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the storage engine. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the rating engine.
func WithEngine(engine *rating.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithWeekSignal sets the source of week boundaries for rollover.
func WithWeekSignal(w rollover.WeekSignal) Option {
	return func(s *Service) {
		if w != nil {
			s.weeks = w
		}
	}
}

// WithSender sets where queued notifications are delivered.
func WithSender(sender workerpool.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithMirror publishes committed leaderboards after every write.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		s.mirror = m
	}
}

// WithCommandMarker sets the prefix that introduces chat commands.
func WithCommandMarker(marker string) Option {
	return func(s *Service) {
		if marker != "" {
			s.marker = marker
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many callback ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSendTimeout bounds one outbound post.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithMaxLeaderboardLimit caps the limit accepted by Leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithClock replaces time.Now; tests use it to drive week boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
