package simulate

import (
	"fmt"
	"os"

	"github.com/okian/wordleboard/pkg/logger"
)

// SetupLogging initialises the global logger for the command line tool.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Wordle Group Simulator
======================

Plays a few days of a Wordle group chat against a running bot by posting
GroupMe callbacks, then checks the leaderboards it serves.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the bot (default "http://localhost:9080")
  -players int
        Number of simulated players (default 12)
  -days int
        Number of puzzles to play (default 7)
  -game int
        First puzzle number (default 1000)
  -turnout float
        Chance a player posts on a given day (default 0.8)
  -chatter int
        Unrelated messages per day (default 5)
  -seed int
        Faker seed, 0 for random (default 0)
  -workers int
        Concurrent posters (default CPU cores)
  -top int
        Rows fetched per leaderboard (default 20)
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every callback
  -help
        Show this help message

Examples:
  # Two weeks with a fixed seed
  go run ./cmd/simulate -days 14 -seed 42

  # Larger group against another port
  go run ./cmd/simulate -players 40 -url http://localhost:8080
`)
}
