package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix     = "WORDLE_"
	EnvConfigFile = "WORDLE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if WORDLE_CONFIG is set
//  3. env (prefix WORDLE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// WORDLE_NOTIFY_QUEUE_SIZE -> notify_queue_size (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.CommandMarker) == "":
		return invalid("command_marker must not be empty")
	case strings.ContainsAny(c.CommandMarker, " \t\n"):
		return invalid("command_marker must not contain whitespace")
	case c.NotifyQueueSize <= 0:
		return invalid("notify_queue_size must be positive")
	case c.NotifyWorkers <= 0:
		return invalid("notify_workers must be positive")
	case c.NotifyRatePerMinute <= 0:
		return invalid("notify_rate_per_minute must be positive")
	case c.NotifyBurst <= 0:
		return invalid("notify_burst must be positive")
	case c.NotifyTimeoutMS <= 0:
		return invalid("notify_timeout_ms must be positive")
	case c.DedupeSize <= 0:
		return invalid("dedupe_size must be positive")
	case c.RatingSigma <= 0:
		return invalid("rating_sigma must be positive")
	case c.RatingExposureK < 0:
		return invalid("rating_exposure_k must not be negative")
	case c.MaxLeaderboardLimit <= 0:
		return invalid("max_leaderboard_limit must be positive")
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return invalid("database_url is required for postgres storage")
		}
	default:
		return invalid(fmt.Sprintf("unknown storage %q", c.Storage))
	}

	if _, err := c.Location(); err != nil {
		return invalid(fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	}
	if _, err := c.Weekday(); err != nil {
		return err
	}
	return nil
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, invalid(fmt.Sprintf("unknown week_start %q", name))
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
