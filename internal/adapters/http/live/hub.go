// Package live streams every outbound notification to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
	"github.com/okian/wordleboard/pkg/metrics"
)

const (
	clientBuffer    = 64
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only and public.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub maintains the set of subscribers and fans notifications out to them.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	count      chan chan int
	done       chan struct{}
	logger     logger.Logger
}

// NewHub creates a hub. Run must be started before ServeWS is used.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBuffer),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's main loop. When ctx is cancelled every subscriber is
// disconnected and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer func() {
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		metrics.UpdateLiveSubscribers(0)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info(ctx, "live hub stopping")
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.UpdateLiveSubscribers(len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.UpdateLiveSubscribers(len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow subscriber
					delete(h.clients, c)
					close(c.send)
				}
			}
			metrics.UpdateLiveSubscribers(len(h.clients))
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Subscribers reports the current number of connected clients.
func (h *Hub) Subscribers() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Send queues n for every subscriber. It never blocks on slow clients.
func (h *Hub) Send(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: matches worker.Sender
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
