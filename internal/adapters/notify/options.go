package notify

import (
	"net/http"
	"time"

	"github.com/okian/wordleboard/pkg/logger"
)

// Option configures a GroupMe poster.
type Option func(*GroupMe)

// WithPostURL overrides the bot post endpoint.
func WithPostURL(url string) Option {
	return func(g *GroupMe) {
		if url != "" {
			g.postURL = url
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *GroupMe) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GroupMe) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithRatePerMinute caps outbound posts. n <= 0 disables the cap.
func WithRatePerMinute(n int) Option {
	return func(g *GroupMe) {
		g.perMinute = n
	}
}

// WithBurst sets how many posts may go out back to back.
func WithBurst(n int) Option {
	return func(g *GroupMe) {
		if n > 0 {
			g.burst = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(g *GroupMe) {
		if l != nil {
			g.logger = l
		}
	}
}
