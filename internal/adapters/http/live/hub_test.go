package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/wordleboard/internal/domain/model"
)

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastsNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	eventually(t, func() bool { return hub.Subscribers() == 1 })

	require.NoError(t, hub.Send(ctx, model.Notification{ID: "n1", Kind: model.NotifyWeeklyWinners, Text: "This week's winner(s): Alice"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got model.Notification
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "n1", got.ID)
	assert.Equal(t, model.NotifyWeeklyWinners, got.Kind)

	require.NoError(t, conn.Close())
	eventually(t, func() bool { return hub.Subscribers() == 0 })
}

func TestHub_SendAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// fill the broadcast buffer so Send has to observe the stop
	for i := 0; i < broadcastBuffer; i++ {
		hub.broadcast <- nil
	}
	err := hub.Send(context.Background(), model.Notification{ID: "late"})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 0, hub.Subscribers())
}
