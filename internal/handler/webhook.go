package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roulette-bot/pkg/apierror"
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// WebhookHandler receives updates pushed by Telegram.
type WebhookHandler struct {
	secret  string
	updates UpdateHandler
	logger  zerolog.Logger
}

// NewWebhookHandler creates a webhook handler. Requests must carry secret as
// the last path segment.
func NewWebhookHandler(secret string, updates UpdateHandler, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:  secret,
		updates: updates,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
}

// Receive handles POST /telegram/webhook/{secret}. The update is processed on
// the request goroutine.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		apierror.NotFound("").Write(w)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn().Err(err).Msg("undecodable webhook payload")
		apierror.BadRequest("invalid update payload").Write(w)
		return
	}

	h.updates.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
