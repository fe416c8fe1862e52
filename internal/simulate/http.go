package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wordleboard/pkg/logger"
)

// Callback outcomes.
const (
	resultScore     = "score"
	resultCommand   = "command"
	resultIgnored   = "ignored"
	resultDuplicate = "duplicate"
	resultReplayed  = "replayed"
	resultFailed    = "failed"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and decodes a JSON body into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// postDay posts one day of callbacks with a bounded set of workers.
func postDay(ctx context.Context, cfg *Config, client *HTTPClient, day []Callback, stats *Stats) {
	var (
		counts = map[string]*int64{
			resultScore:     new(int64),
			resultCommand:   new(int64),
			resultIgnored:   new(int64),
			resultDuplicate: new(int64),
			resultReplayed:  new(int64),
			resultFailed:    new(int64),
		}
		wg sync.WaitGroup
	)

	jobs := make(chan Callback, cfg.Workers*2)
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cb := range jobs {
				result := postCallback(ctx, client, cb)
				atomic.AddInt64(counts[result], 1)
				if cfg.Verbose {
					logger.Get().Debug(ctx, "callback posted",
						logger.String("message_id", cb.ID),
						logger.PlayerID(cb.SenderID),
						logger.String("result", result),
					)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, cb := range day {
			select {
			case <-ctx.Done():
				return
			case jobs <- cb:
			}
		}
	}()
	wg.Wait()

	stats.Scores += int(*counts[resultScore])
	stats.Commands += int(*counts[resultCommand])
	stats.Ignored += int(*counts[resultIgnored])
	stats.Duplicates += int(*counts[resultDuplicate])
	stats.Replayed += int(*counts[resultReplayed])
	stats.Failed += int(*counts[resultFailed])
	for _, n := range counts {
		stats.MessagesPosted += int(*n)
	}
}

// postCallback submits one callback and classifies the reply.
func postCallback(ctx context.Context, client *HTTPClient, cb Callback) string {
	resp, err := client.Post(ctx, "/webhook", cb)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resultFailed
	}

	var ack AckResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return resultFailed
	}
	switch {
	case ack.Replayed:
		return resultReplayed
	case ack.Duplicate:
		return resultDuplicate
	case ack.Kind == resultScore:
		return resultScore
	case ack.Kind == resultCommand:
		return resultCommand
	default:
		return resultIgnored
	}
}

func leaderboardPath(window string, limit int) string {
	q := url.Values{}
	q.Set("window", window)
	q.Set("limit", strconv.Itoa(limit))
	return "/leaderboard?" + q.Encode()
}
