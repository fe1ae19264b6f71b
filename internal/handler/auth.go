package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/auth"
	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/logger"
)

// AuthStore defines the database methods needed to bind devices.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetActiveInstitutionCode(ctx context.Context, codePrefix string) (database.InstitutionCode, error)
}

// AuthHandler binds POS and kitchen devices to an institution.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewAuthHandler(store AuthStore, jwtSecret string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: auth.DeviceTokenTTL, log: logger.OrNop(log)}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/device", h.BindDevice)
}

type bindDeviceRequest struct {
	Code string `json:"code"`
	Role string `json:"role"`
}

type bindDeviceResponse struct {
	AccessToken   string     `json:"access_token"`
	ExpiresAt     time.Time  `json:"expires_at"`
	InstitutionID uuid.UUID  `json:"institution_id"`
	BranchID      *uuid.UUID `json:"branch_id,omitempty"`
	Role          string     `json:"role"`
}

// BindDevice handles POST /auth/device. Unknown prefixes and wrong codes
// get the same 401.
func (h *AuthHandler) BindDevice(w http.ResponseWriter, r *http.Request) {
	var req bindDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = enum.RoleCashier
	}
	if req.Role != enum.RoleCashier && req.Role != enum.RoleKitchen {
		writeError(w, http.StatusBadRequest, "role must be CASHIER or KITCHEN")
		return
	}
	prefix, err := auth.SplitCode(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device code")
		return
	}

	code, err := h.store.GetActiveInstitutionCode(r.Context(), prefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid device code")
			return
		}
		h.log.Error("get institution code", zap.Error(err))
		writeFailure(w, "internal server error", err)
		return
	}
	if !auth.CheckCode(code.CodeHash, req.Code) {
		writeError(w, http.StatusUnauthorized, "invalid device code")
		return
	}

	branchID := uuid.Nil
	resp := bindDeviceResponse{InstitutionID: code.InstitutionID, Role: req.Role}
	if code.BranchID.Valid {
		branchID = uuid.UUID(code.BranchID.Bytes)
		resp.BranchID = &branchID
	}

	token, err := auth.GenerateToken(h.jwtSecret, code.InstitutionID, branchID, req.Role, h.tokenTTL)
	if err != nil {
		h.log.Error("generate device token", zap.Error(err))
		writeFailure(w, "internal server error", err)
		return
	}
	resp.AccessToken = token
	resp.ExpiresAt = time.Now().Add(h.tokenTTL)

	h.log.Info("device bound",
		zap.String("institution_id", code.InstitutionID.String()),
		zap.String("code_prefix", prefix),
		zap.String("role", req.Role))
	writeJSON(w, http.StatusOK, resp)
}
