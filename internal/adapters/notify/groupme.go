// Package notify posts bot messages back into the GroupMe chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
)

const (
	DefaultPostURL       = "https://api.groupme.com/v3/bots/post"
	defaultTimeout       = 5 * time.Second
	defaultRatePerMinute = 30
	defaultBurst         = 5
	maxErrorBody         = 512
)

// postBody is the GroupMe bot post payload.
type postBody struct {
	BotID string `json:"bot_id"`
	Text  string `json:"text"`
}

// GroupMe posts notifications as a GroupMe bot.
type GroupMe struct {
	botID      string
	postURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	perMinute  int
	burst      int
	logger     logger.Logger
}

// NewGroupMe builds a poster for botID.
func NewGroupMe(botID string, opts ...Option) *GroupMe {
	g := &GroupMe{
		botID:      botID,
		postURL:    DefaultPostURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		perMinute:  defaultRatePerMinute,
		burst:      defaultBurst,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.limiter = newLimiter(g.perMinute, g.burst)
	return g
}

func newLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Pace blocks until the rate cap allows another post. Call it once before
// each Send; ctx should not carry the per-post deadline.
func (g *GroupMe) Pace(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return nil
}

// Send posts n.Text. It does not wait for the rate cap; see Pace.
func (g *GroupMe) Send(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches worker.Sender
	body, err := json.Marshal(postBody{BotID: g.botID, Text: n.Text})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	g.logger.Debug(ctx, "posted notification",
		logger.String("notification_id", n.ID),
		logger.String("kind", string(n.Kind)),
	)
	return nil
}
