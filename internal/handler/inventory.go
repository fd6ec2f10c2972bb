package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roulette-bot/internal/model"
	"roulette-bot/internal/service"
	"roulette-bot/pkg/apierror"
	"roulette-bot/pkg/response"
)

// InventoryHandler exposes a user's inventory to operators.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// GetInventory handles GET /api/v1/admin/inventory/{user_id}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := userIDParam(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	view, err := h.inventoryService.View(r.Context(), userID)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, view)
}

func userIDParam(r *http.Request) (int64, *apierror.Error) {
	raw := chi.URLParam(r, "user_id")
	if raw == "" {
		return 0, apierror.BadRequest("user_id is required")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierror.BadRequest("user_id must be an integer")
	}
	return userID, nil
}

// ledgerError maps storage failures onto API errors.
func ledgerError(err error) *apierror.Error {
	if errors.Is(err, model.ErrPersistence) {
		return apierror.ServiceUnavailable("ledger temporarily unavailable")
	}
	return apierror.InternalError("")
}
