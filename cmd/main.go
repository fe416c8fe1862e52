package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/wordleboard/internal/adapters/cache"
	"github.com/okian/wordleboard/internal/adapters/http/api"
	"github.com/okian/wordleboard/internal/adapters/http/live"
	"github.com/okian/wordleboard/internal/adapters/http/swagger"
	"github.com/okian/wordleboard/internal/adapters/notify"
	"github.com/okian/wordleboard/internal/adapters/repository"
	service "github.com/okian/wordleboard/internal/app"
	"github.com/okian/wordleboard/internal/config"
	"github.com/okian/wordleboard/internal/domain/rating"
	"github.com/okian/wordleboard/internal/domain/rollover"
	"github.com/okian/wordleboard/pkg/logger"
	"github.com/okian/wordleboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional file -> env
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "wordleboard exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	engine := rating.NewEngine(
		rating.WithPrior(cfg.RatingMu, cfg.RatingSigma),
		rating.WithExposureK(cfg.RatingExposureK),
	)

	store, err := openStore(ctx, cfg, engine, log)
	if err != nil {
		return err
	}

	var mirror *cache.Mirror
	if cfg.RedisAddr != "" {
		mirror, err = cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cache.WithLogger(log.Named("mirror")))
		if err != nil {
			_ = store.Close()
			return err
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				log.Warn(ctx, "close mirror", logger.Error(err))
			}
		}()
	}

	hub := live.NewHub(live.WithLogger(log.Named("live")))
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHub()
	go hub.Run(hubCtx)

	weeks, err := weekSignal(cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithStore(store),
		service.WithEngine(engine),
		service.WithWeekSignal(weeks),
		service.WithSender(senders(cfg, hub, mirror, log)),
		service.WithCommandMarker(cfg.CommandMarker),
		service.WithWorkerCount(cfg.NotifyWorkers),
		service.WithQueueSize(cfg.NotifyQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSendTimeout(cfg.NotifyTimeout()),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	}
	if mirror != nil {
		opts = append(opts, service.WithMirror(mirror))
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc, hub)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc, log, api.WithLiveFeed(hub.ServeWS))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	// Stop drains the notification queue, so the hub and mirror must still
	// be up until it returns.
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// openStore selects the configured backend and applies migrations.
func openStore(ctx context.Context, cfg *config.Config, engine *rating.Engine, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithPriorRating(engine.Prior()),
		repository.WithLogger(log.Named("store")),
	}
	switch cfg.Storage {
	case config.StoragePostgres:
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, opts...)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.StorageMemory:
		return repository.NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}

func weekSignal(cfg *config.Config) (rollover.CalendarWeeks, error) {
	loc, err := cfg.Location()
	if err != nil {
		return rollover.CalendarWeeks{}, err
	}
	start, err := cfg.Weekday()
	if err != nil {
		return rollover.CalendarWeeks{}, err
	}
	return rollover.CalendarWeeks{Start: start, Location: loc}, nil
}

// senders builds the outbound fan-out. Without a bot id notifications are
// logged instead of posted.
func senders(cfg *config.Config, hub *live.Hub, mirror *cache.Mirror, log logger.Logger) notify.Fanout {
	var out notify.Fanout
	if cfg.BotID != "" {
		out = append(out, notify.NewGroupMe(cfg.BotID,
			notify.WithPostURL(cfg.PostURL),
			notify.WithTimeout(cfg.NotifyTimeout()),
			notify.WithRatePerMinute(cfg.NotifyRatePerMinute),
			notify.WithBurst(cfg.NotifyBurst),
			notify.WithLogger(log.Named("groupme")),
		))
	} else {
		log.Warn(context.Background(), "bot_id not set; notifications will only be logged")
		out = append(out, notify.Log{Logger: log.Named("notify")})
	}
	if hub != nil {
		out = append(out, hub)
	}
	if mirror != nil {
		out = append(out, mirror)
	}
	return out
}

// startServiceMetricsUpdater refreshes gauges that are not driven by events.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, hub *live.Hub) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc, hub)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service, hub *live.Hub) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if players, ok := stats["players"].(int); ok {
		metrics.UpdatePlayersTotal(players)
	}
	if hub != nil {
		metrics.UpdateLiveSubscribers(hub.Subscribers())
	}
}
