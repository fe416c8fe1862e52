// Package rollover detects game and week transitions and applies their side
// effects inside the caller's unit of work.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/rating"
	"github.com/okian/wordleboard/internal/domain/report"
	"github.com/okian/wordleboard/pkg/logger"
)

// Tx is the slice of a storage unit of work the controller needs.
type Tx interface {
	PlayerName(ctx context.Context, playerID string) (string, error)
	Standings(ctx context.Context, w model.Window) ([]model.Standing, error)
	DailyScores(ctx context.Context, game int) ([]model.ScoreRecord, error)
	Ratings(ctx context.Context) ([]model.RatedPlayer, error)
	PutRating(ctx context.Context, playerID string, r model.Rating) error
	ResetWindow(ctx context.Context, w model.Window) error
	ClearDailyScores(ctx context.Context) error
	GameCursor(ctx context.Context) (int, error)
	SetGameCursor(ctx context.Context, game int) error
	WeekCursor(ctx context.Context) (int, error)
	SetWeekCursor(ctx context.Context, week int) error
}

// Outcome describes what OnScore did.
type Outcome struct {
	Initialized    bool
	DailyRollover  bool
	WeeklyRollover bool
	ClosedGame     int
	// Rated holds the new ratings of the closed game's players, empty when
	// the game had fewer than two.
	Rated         []model.RatedPlayer
	Notifications []model.Notification
}

// Option configures a Controller.
type Option func(*Controller)

// WithWeekSignal replaces the calendar week source.
func WithWeekSignal(w WeekSignal) Option {
	return func(c *Controller) {
		if w != nil {
			c.weeks = w
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller runs game and week rollovers. It keeps no state of its own; the
// cursors live in storage and are read through the unit of work.
type Controller struct {
	engine *rating.Engine
	weeks  WeekSignal
	log    logger.Logger
}

// NewController creates a controller using engine for rating updates.
func NewController(engine *rating.Engine, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		weeks:  CalendarWeeks{Start: time.Monday, Location: time.UTC},
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnScore must run before the incoming score is recorded. If incoming is
// newer than the active game it closes the active game: weekly winners and
// reset when the week changed, rating update, daily winners, cursor advance,
// and finally the daily clear. Any error leaves the caller to discard the
// unit of work so the next submission retries from the same state.
func (c *Controller) OnScore(ctx context.Context, tx Tx, incoming int, now time.Time) (Outcome, error) {
	if incoming <= 0 {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidGame, incoming)
	}
	current, err := tx.GameCursor(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if current == 0 {
		if err := tx.SetGameCursor(ctx, incoming); err != nil {
			return Outcome{}, err
		}
		if err := tx.SetWeekCursor(ctx, c.weeks.Week(now)); err != nil {
			return Outcome{}, err
		}
		c.log.Info(ctx, "game cursor initialised", logger.GameID(incoming))
		return Outcome{Initialized: true}, nil
	}
	if incoming <= current {
		return Outcome{}, nil
	}

	out := Outcome{DailyRollover: true, ClosedGame: current}

	// (a) week boundary
	week, err := tx.WeekCursor(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if nowWeek := c.weeks.Week(now); nowWeek != week {
		n, err := c.closeWeek(ctx, tx, nowWeek, now)
		if err != nil {
			return Outcome{}, fmt.Errorf("week rollover: %w", err)
		}
		out.WeeklyRollover = true
		if n != nil {
			out.Notifications = append(out.Notifications, *n)
		}
	}

	// (b) rating update over the closing day
	records, err := tx.DailyScores(ctx, current)
	if err != nil {
		return Outcome{}, err
	}
	rated, err := c.rate(ctx, tx, records)
	if err != nil {
		return Outcome{}, fmt.Errorf("rating update: %w", err)
	}
	out.Rated = rated

	// (c) daily winners
	winners, err := c.dailyWinners(ctx, tx, current, records, len(rated), now)
	if err != nil {
		return Outcome{}, err
	}
	if winners != nil {
		out.Notifications = append(out.Notifications, *winners)
	}

	// (d) advance
	if err := tx.SetGameCursor(ctx, incoming); err != nil {
		return Outcome{}, err
	}

	// (e) clear the closed day last so a failed rollover can be replayed
	if err := tx.ResetWindow(ctx, model.WindowDaily); err != nil {
		return Outcome{}, err
	}
	if err := tx.ClearDailyScores(ctx); err != nil {
		return Outcome{}, err
	}

	c.log.Info(ctx, "game rollover",
		logger.Int("closed_game", current),
		logger.GameID(incoming),
		logger.Int("participants", len(records)),
		logger.Bool("weekly", out.WeeklyRollover))
	return out, nil
}

func (c *Controller) closeWeek(ctx context.Context, tx Tx, nowWeek int, now time.Time) (*model.Notification, error) {
	rows, err := tx.Standings(ctx, model.WindowWeekly)
	if err != nil {
		return nil, err
	}
	var n *model.Notification
	if best, names := WeeklyWinners(rows); len(names) > 0 {
		n = notification(model.NotifyWeeklyWinners, report.WeeklyWinners(best, names), 0, now)
	} else {
		c.log.Info(ctx, "week closed without scores")
	}
	if err := tx.SetWeekCursor(ctx, nowWeek); err != nil {
		return nil, err
	}
	if err := tx.ResetWindow(ctx, model.WindowWeekly); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *Controller) rate(ctx context.Context, tx Tx, records []model.ScoreRecord) ([]model.RatedPlayer, error) {
	if len(records) < 2 {
		c.log.Info(ctx, "rating update skipped", logger.Int("participants", len(records)))
		return nil, nil
	}
	all, err := tx.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.RatedPlayer, len(all))
	for _, p := range all {
		byID[p.PlayerID] = p
	}

	ps := make([]rating.Participant, 0, len(records))
	for _, r := range records {
		p, ok := byID[r.PlayerID]
		if !ok {
			return nil, fmt.Errorf("no rating for player %s", r.PlayerID)
		}
		ps = append(ps, rating.Participant{PlayerID: r.PlayerID, Score: r.Score, Rating: p.Rating})
	}

	updated, err := c.engine.Rate(ps)
	if errors.Is(err, rating.ErrTooFewPlayers) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]model.RatedPlayer, len(ps))
	for i, p := range ps {
		if err := tx.PutRating(ctx, p.PlayerID, updated[i]); err != nil {
			return nil, err
		}
		out[i] = model.RatedPlayer{
			PlayerID: p.PlayerID,
			Name:     byID[p.PlayerID].Name,
			Rating:   updated[i],
			Exposure: c.engine.Exposure(updated[i]),
		}
	}
	return out, nil
}

func (c *Controller) dailyWinners(ctx context.Context, tx Tx, game int, records []model.ScoreRecord, rated int, now time.Time) (*model.Notification, error) {
	best, ids := DailyWinners(records)
	if len(ids) == 0 {
		c.log.Info(ctx, "game closed without scores", logger.GameID(game))
		return nil, nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		name, err := tx.PlayerName(ctx, id)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return notification(model.NotifyDailyWinners, report.DailyWinners(game, best, names, rated), game, now), nil
}

func notification(kind model.NotificationKind, text string, game int, now time.Time) *model.Notification {
	return &model.Notification{ID: uuid.NewString(), Kind: kind, Text: text, Game: game, CreatedAt: now}
}
