package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventqueue "github.com/okian/wordleboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/wordleboard/internal/adapters/mq/worker"
	"github.com/okian/wordleboard/internal/domain/model"
)

func TestGroupMe_Send(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []postBody
		ctyp string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body postBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		got = append(got, body)
		ctyp = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewGroupMe("bot-123", WithPostURL(srv.URL), WithRatePerMinute(0))
	err := g.Send(context.Background(), model.Notification{ID: "n1", Kind: model.NotifyReply, Text: "Alice: 3/6"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "bot-123", got[0].BotID)
	assert.Equal(t, "Alice: 3/6", got[0].Text)
	assert.Equal(t, "application/json", ctyp)
}

func TestGroupMe_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"meta":{"code":400}}`))
	}))
	defer srv.Close()

	g := NewGroupMe("bot-123", WithPostURL(srv.URL), WithRatePerMinute(0))
	err := g.Send(context.Background(), model.Notification{Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "400")
}

func TestGroupMe_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewGroupMe("bot", WithPostURL(srv.URL), WithRatePerMinute(1), WithBurst(1))
	require.NoError(t, g.Pace(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Pace(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
}

// postRecorder is a GroupMe endpoint that keeps every posted text.
func postRecorder(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body postBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		texts = append(texts, body.Text)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), texts...)
	}
}

func drain(t *testing.T, g *GroupMe, sendTimeout time.Duration, texts ...string) {
	t.Helper()
	ctx := context.Background()
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(len(texts)))
	pool := workerpool.NewPool(1, q, Fanout{g}, workerpool.WithSendTimeout(sendTimeout))
	pool.Start(ctx)
	for i, text := range texts {
		require.True(t, q.Enqueue(ctx, model.Notification{ID: fmt.Sprintf("n%d", i), Kind: model.NotifyReply, Text: text}))
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(shutdownCtx))
}

func TestGroupMe_BurstIsNotDropped(t *testing.T) {
	srv, posted := postRecorder(t)
	g := NewGroupMe("bot", WithPostURL(srv.URL))

	drain(t, g, 5*time.Second, "weekly", "daily", "help", "my")
	assert.Equal(t, []string{"weekly", "daily", "help", "my"}, posted())
}

func TestGroupMe_PacingOutlastsSendTimeout(t *testing.T) {
	srv, posted := postRecorder(t)
	// 100ms between posts against a 50ms send deadline.
	g := NewGroupMe("bot", WithPostURL(srv.URL), WithRatePerMinute(600), WithBurst(1))

	drain(t, g, 50*time.Millisecond, "a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, posted())
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(context.Context, model.Notification) error {
	s.calls++
	return s.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	a := &stubSender{err: boom}
	b := &stubSender{}

	err := Fanout{a, nil, b}.Send(context.Background(), model.Notification{Text: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, Fanout{b}.Send(context.Background(), model.Notification{}))
	assert.NoError(t, Log{}.Send(context.Background(), model.Notification{}))
}
