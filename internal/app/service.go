// Package service ties classification, rollover, storage and notification
// delivery together behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wordleboard/internal/adapters/cache"
	eventqueue "github.com/okian/wordleboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/wordleboard/internal/adapters/mq/worker"
	"github.com/okian/wordleboard/internal/adapters/notify"
	"github.com/okian/wordleboard/internal/adapters/ranking"
	"github.com/okian/wordleboard/internal/adapters/repository"
	"github.com/okian/wordleboard/internal/domain/classify"
	"github.com/okian/wordleboard/internal/domain/dedupe"
	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/rating"
	"github.com/okian/wordleboard/internal/domain/report"
	"github.com/okian/wordleboard/internal/domain/rollover"
	"github.com/okian/wordleboard/internal/domain/types"
	"github.com/okian/wordleboard/pkg/logger"
	"github.com/okian/wordleboard/pkg/metrics"
)

const (
	defaultMarker      = "!wordle"
	defaultWorkers     = 1
	defaultQueueSize   = 1024
	defaultDedupeSize  = 10_000
	defaultSendTimeout = 5 * time.Second
	defaultMaxLimit    = 100
)

// Mirror receives the committed leaderboards after every write.
type Mirror interface {
	Publish(ctx context.Context, snap cache.Snapshot) error
}

// MirrorReader is a Mirror that can serve its last published boards.
// Leaderboard falls back to it when the store cannot be read.
type MirrorReader interface {
	Top(ctx context.Context, board string, n int64) ([]cache.Entry, error)
}

// Result describes how one inbound message was handled.
type Result struct {
	Kind classify.Kind
	// Replayed is set when the callback id was already processed.
	Replayed bool
	// Duplicate is set when the player already had a score for Game.
	Duplicate     bool
	Game          int
	Command       classify.Command
	Outcome       rollover.Outcome
	Notifications []model.Notification
}

// Service implements the bot on top of a Store.
type Service struct {
	// writeMu serialises every unit of work that mutates state.
	writeMu sync.Mutex
	lifeMu  sync.Mutex
	started atomic.Bool

	store      repository.Store
	engine     *rating.Engine
	weeks      rollover.WeekSignal
	controller *rollover.Controller
	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	pool       *workerpool.Pool
	sender     workerpool.Sender
	index      *ranking.Index
	mirror     Mirror
	cancel     context.CancelFunc

	marker      string
	workerCount int
	queueSize   int
	dedupeSize  int
	sendTimeout time.Duration
	maxLimit    int
	now         func() time.Time

	logger logger.Logger
}

// New constructs a Service. Without WithStore it keeps state in memory.
func New(opts ...Option) *Service {
	s := &Service{
		marker:      defaultMarker,
		workerCount: defaultWorkers,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		sendTimeout: defaultSendTimeout,
		maxLimit:    defaultMaxLimit,
		now:         time.Now,
		index:       ranking.NewIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.engine == nil {
		s.engine = rating.NewEngine()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(
			repository.WithPriorRating(s.engine.Prior()),
			repository.WithLogger(s.logger.Named("store")),
		)
	}
	if s.sender == nil {
		s.sender = notify.Log{Logger: s.logger.Named("notify")}
	}
	s.controller = rollover.NewController(s.engine,
		rollover.WithWeekSignal(s.weeks),
		rollover.WithLogger(s.logger.Named("rollover")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start loads the ranking index from storage and starts the notification
// workers. The workers outlive ctx; Stop ends them.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.started.Load() {
		return nil
	}
	s.logger.Info(ctx, "starting wordle service...")

	var (
		players []model.RatedPlayer
		game    int
	)
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		var err error
		if players, err = tx.Ratings(ctx); err != nil {
			return err
		}
		game, err = tx.GameCursor(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	for i := range players {
		players[i].Exposure = s.engine.Exposure(players[i].Rating)
	}
	s.index.Replace(players)
	metrics.UpdatePlayersTotal(len(players))
	metrics.UpdateCurrentGame(game)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.sender,
		workerpool.WithLogger(s.logger),
		workerpool.WithSendTimeout(s.sendTimeout),
	)
	s.pool.Start(runCtx)

	s.publish(ctx)

	s.started.Store(true)
	s.logger.Info(ctx, "wordle service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("players", len(players)),
		logger.GameID(game),
	)
	return nil
}

// Stop drains queued notifications and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.started.Load() {
		return nil
	}
	s.logger.Info(ctx, "stopping wordle service...")
	s.started.Store(false)

	// wait for an in-flight write
	s.writeMu.Lock()
	s.writeMu.Unlock() //nolint:staticcheck // barrier

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.logger.Info(ctx, "wordle service stopped")
	return errors.Join(errs...)
}

// HandleMessage processes one inbound chat message. Bot posts, replayed
// callbacks and unrelated chatter are accepted without side effects. A
// malformed score returns an error wrapping classify.ErrMalformedScore.
func (s *Service) HandleMessage(ctx context.Context, msg model.Message) (Result, error) {
	if !s.started.Load() {
		return Result{}, ErrNotStarted
	}
	start := time.Now()
	defer func() {
		metrics.RecordProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if msg.FromBot() {
		metrics.RecordMessageReceived("bot")
		return Result{Kind: classify.KindIgnored}, nil
	}
	if msg.ID != "" && s.deduper.SeenAndRecord(ctx, msg.ID) {
		metrics.RecordCallbackDuplicate()
		s.logger.Debug(ctx, "callback replayed, skipping", logger.String("message_id", msg.ID))
		return Result{Replayed: true}, nil
	}

	c, err := classify.Classify(msg.Text, s.marker)
	if err != nil {
		metrics.RecordProcessingError("malformed")
		return Result{}, err
	}
	metrics.RecordMessageReceived(c.Kind.String())

	var res Result
	switch c.Kind {
	case classify.KindScore:
		res, err = s.submit(ctx, msg, c.Score)
	case classify.KindCommand:
		res, err = s.command(ctx, msg, c.Command)
	default:
		return Result{Kind: classify.KindIgnored}, nil
	}
	if err != nil {
		// let the chat service redeliver
		if msg.ID != "" {
			s.deduper.Unrecord(ctx, msg.ID)
		}
		metrics.RecordProcessingError(c.Kind.String())
		s.logger.Error(ctx, "message processing failed",
			logger.String("message_id", msg.ID),
			logger.PlayerID(msg.SenderID),
			logger.Error(err),
		)
		return Result{}, err
	}

	s.enqueue(ctx, res.Notifications)
	return res, nil
}

// submit records one score. Rollover runs first, inside the same unit of
// work, so the closing day is settled before the new game's score lands.
func (s *Service) submit(ctx context.Context, msg model.Message, score classify.Result) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	// Stop may have passed its write barrier while this call waited.
	if !s.started.Load() {
		return Result{}, ErrNotStarted
	}

	now := s.now()
	var (
		out      rollover.Outcome
		created  bool
		recorded bool
	)
	err := s.store.Update(ctx, func(tx repository.Tx) error {
		var err error
		if created, err = tx.EnsurePlayer(ctx, msg.SenderID, msg.Name); err != nil {
			return err
		}
		if out, err = s.controller.OnScore(ctx, tx, score.Game, now); err != nil {
			return err
		}
		if recorded, err = tx.RecordDaily(ctx, msg.SenderID, score.Score, score.Game); err != nil || !recorded {
			return err
		}
		for _, w := range []model.Window{model.WindowWeekly, model.WindowAllTime} {
			if err := tx.RecordCumulative(ctx, msg.SenderID, score.Score, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("record score: %w", err)
	}

	res := Result{
		Kind:          classify.KindScore,
		Game:          score.Game,
		Duplicate:     !recorded,
		Outcome:       out,
		Notifications: append([]model.Notification(nil), out.Notifications...),
	}
	if recorded {
		metrics.RecordScoreRecorded()
	} else {
		metrics.RecordDuplicateSubmission()
		res.Notifications = append(res.Notifications,
			s.notification(model.NotifyDuplicate, report.Duplicate(msg.Name, score.Game), score.Game, now))
	}

	s.refreshIndex(msg, out.Rated, created)
	s.recordOutcome(out, score.Game, created)
	s.publish(ctx)
	return res, nil
}

func (s *Service) refreshIndex(msg model.Message, rated []model.RatedPlayer, created bool) {
	for _, p := range rated {
		s.index.Upsert(p)
	}
	if created {
		prior := s.engine.Prior()
		s.index.Upsert(model.RatedPlayer{
			PlayerID: msg.SenderID,
			Name:     msg.Name,
			Rating:   prior,
			Exposure: s.engine.Exposure(prior),
		})
		return
	}
	if p, err := s.index.Rank(msg.SenderID); err == nil && p.Name != msg.Name {
		p.Name = msg.Name
		s.index.Upsert(p)
	}
}

func (s *Service) recordOutcome(out rollover.Outcome, game int, created bool) {
	if out.Initialized || out.DailyRollover {
		metrics.UpdateCurrentGame(game)
	}
	if out.DailyRollover {
		metrics.RecordRollover(string(model.WindowDaily))
	}
	if out.WeeklyRollover {
		metrics.RecordRollover(string(model.WindowWeekly))
	}
	if len(out.Rated) > 0 {
		metrics.RecordRatingUpdate(len(out.Rated))
	}
	if created {
		metrics.UpdatePlayersTotal(s.index.Len())
	}
}

// command answers a chat command from a read-only snapshot.
func (s *Service) command(ctx context.Context, msg model.Message, cmd classify.Command) (Result, error) {
	var text string
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		var err error
		text, err = s.render(ctx, tx, msg, cmd)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("command %s: %w", cmd, err)
	}
	return Result{
		Kind:          classify.KindCommand,
		Command:       cmd,
		Notifications: []model.Notification{s.notification(model.NotifyReply, text, 0, s.now())},
	}, nil
}

func (s *Service) render(ctx context.Context, tx repository.ReadTx, msg model.Message, cmd classify.Command) (string, error) {
	switch cmd {
	case classify.CommandDaily, classify.CommandWeekly, classify.CommandAll:
		w, _ := model.ParseWindow(string(cmd))
		registered, err := tx.PlayerCount(ctx)
		if err != nil {
			return "", err
		}
		rows, err := tx.Standings(ctx, w)
		if err != nil {
			return "", err
		}
		return report.Standings(w, rows, registered), nil

	case classify.CommandLeaderboard:
		registered, err := tx.PlayerCount(ctx)
		if err != nil {
			return "", err
		}
		rows, err := tx.Ratings(ctx)
		if err != nil {
			return "", err
		}
		return report.Ratings(s.engine.Leaderboard(rows), registered), nil

	case classify.CommandMy:
		st, err := tx.Stats(ctx, msg.SenderID)
		if errors.Is(err, repository.ErrNotFound) {
			return report.NoStats(msg.Name), nil
		}
		if err != nil {
			return "", err
		}
		var rank *model.RatedPlayer
		if p, err := s.index.Rank(msg.SenderID); err == nil {
			rank = &p
		}
		return report.Player(st, rank), nil

	default:
		names := make([]string, len(classify.Commands))
		for i, c := range classify.Commands {
			names[i] = string(c)
		}
		return report.Help(s.marker, names), nil
	}
}

func (s *Service) notification(kind model.NotificationKind, text string, game int, now time.Time) model.Notification {
	return model.Notification{ID: uuid.NewString(), Kind: kind, Text: text, Game: game, CreatedAt: now}
}

// enqueue hands notifications to the workers. A full queue drops them.
func (s *Service) enqueue(ctx context.Context, ns []model.Notification) {
	for _, n := range ns {
		if !s.queue.Enqueue(ctx, n) {
			s.logger.Warn(ctx, "notification dropped",
				logger.String("notification_id", n.ID),
				logger.String("kind", string(n.Kind)),
			)
		}
	}
}

// publish mirrors the committed leaderboards. Failures are logged only.
func (s *Service) publish(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	snap := cache.Snapshot{Standings: make(map[model.Window][]model.Standing, len(model.Windows))}
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		var err error
		if snap.Game, err = tx.GameCursor(ctx); err != nil {
			return err
		}
		for _, w := range model.Windows {
			if snap.Standings[w], err = tx.Standings(ctx, w); err != nil {
				return err
			}
		}
		rows, err := tx.Ratings(ctx)
		if err != nil {
			return err
		}
		snap.Ratings = s.engine.Leaderboard(rows)
		return nil
	})
	if err == nil {
		err = s.mirror.Publish(ctx, snap)
	}
	if err != nil {
		s.logger.Warn(ctx, "leaderboard mirror not updated", logger.Error(err))
	}
}

// Leaderboard returns up to limit rows of a window leaderboard with
// competition ranks.
func (s *Service) Leaderboard(ctx context.Context, w model.Window, limit int) ([]types.Entry, error) {
	if !w.Valid() {
		return nil, ErrUnknownBoard
	}
	if err := s.checkLimit(limit); err != nil {
		return nil, err
	}
	var rows []model.Standing
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		var err error
		rows, err = tx.Standings(ctx, w)
		return err
	})
	if err != nil {
		if out, ok := s.mirroredLeaderboard(ctx, w, limit, err); ok {
			return out, nil
		}
		return nil, fmt.Errorf("leaderboard %s: %w", w, err)
	}

	out := make([]types.Entry, 0, min(limit, len(rows)))
	rank := 0
	for i, r := range rows {
		if i >= limit {
			break
		}
		if i == 0 || r.Average != rows[i-1].Average {
			rank = i + 1
		}
		out = append(out, types.FromStanding(rank, r))
	}
	return out, nil
}

// mirroredLeaderboard serves a window from the mirror after a store failure.
func (s *Service) mirroredLeaderboard(ctx context.Context, w model.Window, limit int, cause error) ([]types.Entry, bool) {
	r, ok := s.mirror.(MirrorReader)
	if !ok {
		return nil, false
	}
	rows, err := r.Top(ctx, string(w), int64(limit))
	if err != nil {
		s.logger.Warn(ctx, "mirror fallback failed", logger.String("window", string(w)), logger.Error(err))
		return nil, false
	}
	s.logger.Warn(ctx, "store unavailable; serving mirrored leaderboard",
		logger.String("window", string(w)),
		logger.Error(cause),
	)
	metrics.RecordProcessingError("leaderboard_fallback")

	out := make([]types.Entry, len(rows))
	rank := 0
	for i, e := range rows {
		if i == 0 || e.Score != rows[i-1].Score {
			rank = i + 1
		}
		out[i] = types.Entry{Rank: rank, PlayerID: e.PlayerID, Name: e.Name, Games: e.Games, Average: e.Score}
	}
	return out, true
}

// Ratings returns the top of the skill leaderboard.
func (s *Service) Ratings(_ context.Context, limit int) ([]types.RatingEntry, error) {
	if err := s.checkLimit(limit); err != nil {
		return nil, err
	}
	if s.index.Len() == 0 {
		return []types.RatingEntry{}, nil
	}
	rows, err := s.index.Top(limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}
	out := make([]types.RatingEntry, len(rows))
	for i, r := range rows {
		out[i] = types.FromRated(r)
	}
	return out, nil
}

// Player returns one player's stats and skill rank.
func (s *Service) Player(ctx context.Context, playerID string) (types.Player, error) {
	var st model.PlayerStats
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		var err error
		st, err = tx.Stats(ctx, playerID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return types.Player{}, fmt.Errorf("%w: %s", ErrNotFound, playerID)
	}
	if err != nil {
		return types.Player{}, err
	}
	var rank *model.RatedPlayer
	if p, err := s.index.Rank(playerID); err == nil {
		rank = &p
	}
	return types.FromStats(st, rank), nil
}

func (s *Service) checkLimit(limit int) error {
	if limit < 1 || limit > s.maxLimit {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, s.maxLimit)
	}
	return nil
}

// MaxLimit is the largest accepted leaderboard limit.
func (s *Service) MaxLimit() int { return s.maxLimit }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"started":     s.started.Load(),
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeLen":   s.deduper.Size(),
		"ratedCount":  s.index.Len(),
	}
	if !s.started.Load() {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	err := s.store.View(ctx, func(tx repository.ReadTx) error {
		players, err := tx.PlayerCount(ctx)
		if err != nil {
			return err
		}
		game, err := tx.GameCursor(ctx)
		if err != nil {
			return err
		}
		week, err := tx.WeekCursor(ctx)
		if err != nil {
			return err
		}
		stats["players"] = players
		stats["game"] = game
		stats["week"] = week
		return nil
	})
	if err != nil {
		s.logger.Warn(ctx, "stats snapshot failed", logger.Error(err))
	}
	return stats
}
