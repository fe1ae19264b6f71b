package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/menu"
)

// MenuReader is satisfied by *menu.Service.
type MenuReader interface {
	GetMenu(ctx context.Context, institutionID uuid.UUID) (*menu.Menu, error)
}

// MenuHandler serves the public menu.
type MenuHandler struct {
	menus MenuReader
	log   *zap.Logger
}

func NewMenuHandler(menus MenuReader, log *zap.Logger) *MenuHandler {
	return &MenuHandler{menus: menus, log: logger.OrNop(log)}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Get)
}

// Get handles GET /menu?institution_id=.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("institution_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing institution_id query parameter")
		return
	}
	institutionID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid institution_id")
		return
	}

	m, err := h.menus.GetMenu(r.Context(), institutionID)
	if err != nil {
		h.log.Error("get menu", zap.String("institution_id", raw), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch menu")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, m)
}
