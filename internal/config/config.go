// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CommandMarker prefixes chat commands, e.g. "!wordle daily".
	CommandMarker string `koanf:"command_marker"`

	// BotID and PostURL configure the outbound GroupMe bot. An empty BotID
	// disables posting; notifications still reach the live feed.
	BotID   string `koanf:"bot_id"`
	PostURL string `koanf:"post_url"`

	// NotifyQueueSize bounds the outbound notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`
	// NotifyWorkers sets the number of notification senders. Only a single
	// sender preserves the order notifications were emitted in.
	NotifyWorkers int `koanf:"notify_workers"`
	// NotifyRatePerMinute caps outbound posts.
	NotifyRatePerMinute int `koanf:"notify_rate_per_minute"`
	// NotifyBurst is how many posts may go out back to back before the
	// rate cap applies.
	NotifyBurst int `koanf:"notify_burst"`
	// NotifyTimeoutMS bounds a single outbound post.
	NotifyTimeoutMS int `koanf:"notify_timeout_ms"`

	// DedupeSize sets the number of callback message ids remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// Storage selects the backend: memory or postgres.
	Storage     string `koanf:"storage"`
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables the leaderboard mirror when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Rating prior and exposure multiplier.
	RatingMu        float64 `koanf:"rating_mu"`
	RatingSigma     float64 `koanf:"rating_sigma"`
	RatingExposureK float64 `koanf:"rating_exposure_k"`

	// WeekStart names the weekday a new week begins on; Timezone is an IANA name.
	WeekStart string `koanf:"week_start"`
	Timezone  string `koanf:"timezone"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		CommandMarker:       "!wordle",
		PostURL:             "https://api.groupme.com/v3/bots/post",
		NotifyQueueSize:     1024,
		NotifyWorkers:       1,
		NotifyRatePerMinute: 30,
		NotifyBurst:         5,
		NotifyTimeoutMS:     5000,
		DedupeSize:          10_000,
		Storage:             StorageMemory,
		RatingMu:            25.0,
		RatingSigma:         25.0 / 3.0,
		RatingExposureK:     3.0,
		WeekStart:           "monday",
		Timezone:            "UTC",
		MaxLeaderboardLimit: 100,
	}
}

// NotifyTimeout returns NotifyTimeoutMS as a duration.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMS) * time.Millisecond
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Weekday resolves WeekStart.
func (c *Config) Weekday() (time.Weekday, error) {
	return ParseWeekday(c.WeekStart)
}
