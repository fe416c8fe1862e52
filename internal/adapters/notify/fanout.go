package notify

import (
	"context"
	"errors"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Pacer is implemented by senders that throttle their own delivery.
type Pacer interface {
	Pace(ctx context.Context) error
}

// Fanout sends every notification to each sender in order and joins the
// errors. A failing sender does not stop the others.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches worker.Sender
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pace waits on every member that throttles.
func (f Fanout) Pace(ctx context.Context) error {
	for _, s := range f {
		if p, ok := s.(Pacer); ok {
			if err := p.Pace(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Log writes notifications to the logger instead of posting them. Used when
// no bot id is configured.
type Log struct {
	Logger logger.Logger
}

func (l Log) Send(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches worker.Sender
	if l.Logger == nil {
		return nil
	}
	l.Logger.Info(ctx, "notification",
		logger.String("kind", string(n.Kind)),
		logger.GameID(n.Game),
		logger.String("text", n.Text),
	)
	return nil
}
