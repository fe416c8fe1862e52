package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/wordleboard/pkg/logger"
)

// Report is what a run observed at the end.
type Report struct {
	Stats   Stats
	Seed    int64
	Players []Player
	Daily   []Entry
	Weekly  []Entry
	AllTime []Entry
	Ratings []RatingEntry
}

type boardResponse[T any] struct {
	Window  string `json:"window"`
	Entries []T    `json:"entries"`
}

// Run plays cfg.Days puzzles against a running bot and checks the
// leaderboards it serves afterwards.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	gen := NewGenerator(cfg.Seed)
	rep := &Report{Seed: gen.Seed(), Stats: Stats{StartTime: time.Now()}}
	log := logger.Named("simulate")

	log.Info(ctx, "starting wordle simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("days", cfg.Days),
		logger.Int("startGame", cfg.StartGame),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", rep.Seed),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	rep.Players = gen.Players(cfg.Players)
	for d := 0; d < cfg.Days; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		game := cfg.StartGame + d
		day := gen.Day(cfg, rep.Players, game, d)
		postDay(ctx, cfg, client, day, &rep.Stats)
		log.Info(ctx, "day posted", logger.GameID(game), logger.Int("messages", len(day)))
	}

	if err := fetchBoards(ctx, cfg, client, rep); err != nil {
		return nil, err
	}
	if err := verify(rep); err != nil {
		return rep, err
	}

	rep.Stats.EndTime = time.Now()
	rep.Stats.Duration = rep.Stats.EndTime.Sub(rep.Stats.StartTime)
	displayFinalStats(ctx, log, rep)
	return rep, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return errors.New("base url is required")
	case cfg.Players < 1:
		return errors.New("players must be positive")
	case cfg.Days < 1:
		return errors.New("days must be positive")
	case cfg.StartGame < 1:
		return errors.New("start game must be positive")
	case cfg.Turnout <= 0 || cfg.Turnout > 1:
		return errors.New("turnout must be in (0, 1]")
	case cfg.Workers < 1:
		return errors.New("workers must be positive")
	case cfg.TopN < 1:
		return errors.New("top must be positive")
	}
	return nil
}

func fetchBoards(ctx context.Context, cfg *Config, client *HTTPClient, rep *Report) error {
	for _, b := range []struct {
		window string
		dst    *[]Entry
	}{
		{"daily", &rep.Daily},
		{"weekly", &rep.Weekly},
		{"all", &rep.AllTime},
	} {
		var resp boardResponse[Entry]
		if err := client.Get(ctx, leaderboardPath(b.window, cfg.TopN), &resp); err != nil {
			return fmt.Errorf("leaderboard %s: %w", b.window, err)
		}
		*b.dst = resp.Entries
	}

	var ratings boardResponse[RatingEntry]
	if err := client.Get(ctx, leaderboardPath("rating", cfg.TopN), &ratings); err != nil {
		return fmt.Errorf("leaderboard rating: %w", err)
	}
	rep.Ratings = ratings.Entries
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, rep *Report) {
	var perSecond float64
	if rep.Stats.Duration > 0 {
		perSecond = float64(rep.Stats.MessagesPosted) / rep.Stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("messagesPosted", rep.Stats.MessagesPosted),
		logger.Int("scores", rep.Stats.Scores),
		logger.Int("commands", rep.Stats.Commands),
		logger.Int("ignored", rep.Stats.Ignored),
		logger.Int("duplicates", rep.Stats.Duplicates),
		logger.Int("replayed", rep.Stats.Replayed),
		logger.Int("failed", rep.Stats.Failed),
		logger.Duration("duration", rep.Stats.Duration),
		logger.Float64("messagesPerSecond", perSecond),
	)

	top := min(len(rep.Ratings), 10)
	for _, e := range rep.Ratings[:top] {
		log.Info(ctx, "rating",
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Float64("mu", e.Mu),
			logger.Float64("sigma", e.Sigma),
			logger.Float64("exposure", e.Exposure),
		)
	}
}
