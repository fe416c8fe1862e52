// Package worker drains the notification queue and hands each notification
// to a Sender.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
	"github.com/okian/wordleboard/pkg/metrics"
)

const (
	defaultSendTimeout  = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// ErrSendTimeout is reported when a Sender exceeds its deadline.
var ErrSendTimeout = errors.New("send timed out")

// Sender delivers one notification. Failures are logged and counted; the
// notification is not retried.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Pacer is an optional Sender extension. Workers call Pace before each
// Send, outside the send deadline, so a throttled sender is not cut short
// while it waits for capacity.
type Pacer interface {
	Pace(ctx context.Context) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n model.Notification) error

func (f SenderFunc) Send(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Notification
}

// Worker processes notifications until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker reads from a Queue and calls a Sender.
type InMemoryWorker struct {
	queue       Queue
	sender      Sender
	name        string
	sendTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sender Sender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		sender:      sender,
		name:        "worker",
		sendTimeout: defaultSendTimeout,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes notifications until ctx is done, Shutdown is called or the
// queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-items:
			if !ok {
				return
			}
			if err := w.deliver(ctx, n); err != nil {
				w.logger.Warn(ctx, "notification not delivered",
					logger.String("notification_id", n.ID),
					logger.String("kind", string(n.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for the current send to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) deliver(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordNotifyLatency(float64(time.Since(start).Milliseconds()))
	}()

	if p, ok := w.sender.(Pacer); ok {
		if err := p.Pace(ctx); err != nil {
			metrics.RecordNotification("failed")
			return fmt.Errorf("pace %s: %w", n.ID, err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	err := w.sender.Send(sendCtx, n)
	if err != nil {
		metrics.RecordNotification("failed")
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrSendTimeout, err)
		}
		return fmt.Errorf("send %s: %w", n.ID, err)
	}
	metrics.RecordNotification("sent")
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. workerCount < 1 uses a single worker.
// Notifications leave the queue in order, but only one worker delivers them
// in that order.
func NewPool(workerCount int, queue Queue, sender Sender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Nop(),
	}
	base := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(base)
	}
	pool.logger = base.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, sender, workerOpts...)
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue and lets the workers drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
