package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/logger"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	GetInstitutionCustomerByPhone(ctx context.Context, arg database.GetInstitutionCustomerByPhoneParams) (database.Customer, error)
}

// CustomerHandler lets the POS prefill checkout details for a returning
// customer. Records are written by order submission.
type CustomerHandler struct {
	store CustomerStore
	log   *zap.Logger
}

func NewCustomerHandler(store CustomerStore, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{store: store, log: logger.OrNop(log)}
}

func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers/lookup", h.Lookup)
}

type customerResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone"`
	Email   *string   `json:"email"`
	Address *string   `json:"address"`
}

// Lookup handles GET /customers/lookup?phone=. Only customers who have
// ordered from the device's institution are visible.
func (h *CustomerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" || phone == enum.PhonePlaceholder {
		writeError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}

	c, err := h.store.GetInstitutionCustomerByPhone(r.Context(), database.GetInstitutionCustomerByPhoneParams{
		Phone:         phone,
		InstitutionID: institutionID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.log.Error("look up customer", zap.Error(err))
		writeFailure(w, "internal server error", err)
		return
	}

	resp := customerResponse{ID: c.ID, Name: c.Name, Phone: c.Phone}
	if c.Email.Valid {
		resp.Email = &c.Email.String
	}
	if c.Address.Valid {
		resp.Address = &c.Address.String
	}
	writeJSON(w, http.StatusOK, resp)
}
