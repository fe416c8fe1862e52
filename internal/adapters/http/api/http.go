// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/wordleboard/internal/app"
	"github.com/okian/wordleboard/internal/domain/classify"
	"github.com/okian/wordleboard/internal/domain/rollover"
	"github.com/okian/wordleboard/internal/domain/types"
	"github.com/okian/wordleboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	MessageHandler
	LeaderboardDependencies
	PlayerDependencies
}

// Entry mirrors the read shape returned by window leaderboards.
type Entry = types.Entry

// Server wires HTTP routes for the bot.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	webhookHandler     *WebhookHandler
	leaderboardHandler *LeaderboardHandler
	playerHandler      *PlayerHandler
	live               http.HandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLiveFeed mounts the websocket feed on /live.
func WithLiveFeed(h http.HandlerFunc) Option {
	return func(s *Server) {
		s.live = h
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		webhookHandler:     NewWebhookHandler(deps, log.Named("webhook")),
		leaderboardHandler: NewLeaderboardHandler(deps),
		playerHandler:      NewPlayerHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", Chain(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", Chain(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/webhook", Chain(s.webhookHandler.HandleCallback, "webhook"))
	mux.HandleFunc("/leaderboard", Chain(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/players/", Chain(s.playerHandler.HandleGetPlayer, "players"))
	if s.live != nil {
		mux.HandleFunc("/live", s.live)
	}
	// GroupMe bots are often registered with a bare callback URL.
	mux.HandleFunc("/", Chain(s.webhookHandler.HandleRoot, "webhook"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor translates service errors into a status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, service.ErrUnknownBoard):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, classify.ErrMalformedScore),
		errors.Is(err, rollover.ErrInvalidGame):
		return http.StatusUnprocessableEntity, "malformed_score"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

var (
	_ Dependencies  = (*service.Service)(nil)
	_ StatsProvider = (*service.Service)(nil)
)
