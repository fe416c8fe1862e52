package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/types"
)

const (
	defaultLimit = 10
	boardRating  = "rating"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, w model.Window, limit int) ([]types.Entry, error)
	Ratings(ctx context.Context, limit int) ([]types.RatingEntry, error)
}

type leaderboardResponse struct {
	Window  string `json:"window"`
	Entries any    `json:"entries"`
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?window=daily|weekly|all|rating&limit=N.
// window defaults to daily and limit to 10.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	limit := defaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}
	board := q.Get("window")
	if board == "" {
		board = string(model.WindowDaily)
	}

	if board == boardRating {
		entries, err := h.deps.Ratings(r.Context(), limit)
		if err != nil {
			writeServiceError(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, leaderboardResponse{Window: boardRating, Entries: entries})
		return
	}

	window, ok := model.ParseWindow(board)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), window, limit)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Window: string(window), Entries: entries})
}
