package handler

import (
	"net/http"
	"strconv"

	"roulette-bot/internal/repository"
	"roulette-bot/pkg/response"
)

const (
	defaultGrantLimit = 50
	maxGrantLimit     = 500
)

// GrantLogHandler serves the append-only grant log.
type GrantLogHandler struct {
	ledger repository.Ledger
}

func NewGrantLogHandler(ledger repository.Ledger) *GrantLogHandler {
	return &GrantLogHandler{ledger: ledger}
}

// GetGrants handles GET /api/v1/admin/inventory/{user_id}/grants?limit=N
func (h *GrantLogHandler) GetGrants(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxGrantLimit {
		limit = defaultGrantLimit
	}

	records, err := h.ledger.ListGrants(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.JSONWithMeta(w, http.StatusOK, records, limit, len(records))
}
