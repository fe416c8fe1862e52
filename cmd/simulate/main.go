package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/wordleboard/internal/simulate"
)

// Default configuration constants.
const (
	defaultPlayers   = 12
	defaultDays      = 7
	defaultStartGame = 1000
	defaultTurnout   = 0.8
	defaultChatter   = 5
	defaultTopN      = 20
	defaultTimeout   = 10 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the bot")
		players = flag.Int("players", defaultPlayers, "Number of simulated players")
		days    = flag.Int("days", defaultDays, "Number of puzzles to play")
		game    = flag.Int("game", defaultStartGame, "First puzzle number")
		turnout = flag.Float64("turnout", defaultTurnout, "Chance a player posts on a given day")
		chatter = flag.Int("chatter", defaultChatter, "Unrelated messages per day")
		seed    = flag.Int64("seed", 0, "Faker seed, 0 for random")
		workers = flag.Int("workers", runtime.NumCPU(), "Concurrent posters")
		topN    = flag.Int("top", defaultTopN, "Rows fetched per leaderboard")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Log every callback")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:   *baseURL,
		Players:   *players,
		Days:      *days,
		StartGame: *game,
		Turnout:   *turnout,
		Chatter:   *chatter,
		Seed:      *seed,
		Workers:   *workers,
		Timeout:   *timeout,
		TopN:      *topN,
		Verbose:   *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
