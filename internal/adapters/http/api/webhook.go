package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/wordleboard/internal/app"
	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
)

const maxCallbackBytes = 64 << 10

// MessageHandler processes one inbound chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg model.Message) (service.Result, error)
}

// callbackRequest is the GroupMe bot callback payload. Fields the bot does
// not use are left out.
type callbackRequest struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	SenderType string `json:"sender_type"`
	System     bool   `json:"system"`
	CreatedAt  int64  `json:"created_at"`
}

func (c callbackRequest) message() model.Message {
	sender := c.SenderID
	if sender == "" {
		sender = c.UserID
	}
	msg := model.Message{
		ID:         c.ID,
		SenderID:   sender,
		Name:       strings.TrimSpace(c.Name),
		Text:       strings.TrimSpace(c.Text),
		SenderType: c.SenderType,
	}
	if c.CreatedAt > 0 {
		msg.CreatedAt = time.Unix(c.CreatedAt, 0).UTC()
	}
	return msg
}

type ackResponse struct {
	Status    string `json:"status"`
	Kind      string `json:"kind,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Replayed  bool   `json:"replayed,omitempty"`
}

// WebhookHandler handles chat callbacks.
type WebhookHandler struct {
	deps   MessageHandler
	logger logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps MessageHandler, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{deps: deps, logger: log}
}

// HandleRoot serves POST / as a callback and 404s everything else.
func (h *WebhookHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.HandleCallback(w, r)
}

// HandleCallback handles POST /webhook requests.
func (h *WebhookHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_webhook"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req callbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallbackBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	msg := req.message()
	if req.System || msg.SenderID == "" {
		// membership changes and other system posts
		writeJSON(w, http.StatusOK, ackResponse{Status: "ok", Kind: "ignored"})
		return
	}

	res, err := h.deps.HandleMessage(r.Context(), msg)
	if err != nil {
		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "callback failed",
				logger.String("message_id", msg.ID),
				logger.PlayerID(msg.SenderID),
				logger.Error(err),
			)
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{
		Status:    "ok",
		Kind:      res.Kind.String(),
		Duplicate: res.Duplicate,
		Replayed:  res.Replayed,
	})
}
