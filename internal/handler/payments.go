package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/payment"
)

// PaymentInitiator is satisfied by *payment.Client.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req payment.Request) (json.RawMessage, error)
}

// PaymentHandler starts mobile-money payments for orders.
type PaymentHandler struct {
	payments PaymentInitiator
	limit    func(http.Handler) http.Handler
	log      *zap.Logger
}

// NewPaymentHandler creates a PaymentHandler. limit, when non-nil, wraps
// the endpoint (rate limiting).
func NewPaymentHandler(payments PaymentInitiator, limit func(http.Handler) http.Handler, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, limit: limit, log: logger.OrNop(log)}
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	if h.limit != nil {
		r = r.With(h.limit)
	}
	r.Post("/payment", h.Initiate)
}

type initiatePaymentRequest struct {
	PhoneNumber     string          `json:"phoneNumber"`
	Amount          decimal.Decimal `json:"amount"`
	ServiceProvider string          `json:"serviceProvider"`
	ExternalRef     string          `json:"externalRef"`
}

type initiatePaymentResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Initiate handles POST /payment.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	data, err := h.payments.Initiate(r.Context(), payment.Request{
		Phone:       req.PhoneNumber,
		Amount:      req.Amount,
		Provider:    req.ServiceProvider,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		h.writePaymentError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, initiatePaymentResponse{Success: true, Data: data})
}

func (h *PaymentHandler) writePaymentError(w http.ResponseWriter, req initiatePaymentRequest, err error) {
	var gerr *payment.GatewayError
	switch {
	case errors.Is(err, payment.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "Valid phone number is required")
	case errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Valid amount is required")
	case errors.Is(err, payment.ErrInvalidProvider):
		writeError(w, http.StatusBadRequest, "Valid service provider is required")
	case errors.Is(err, payment.ErrMissingRef):
		writeError(w, http.StatusBadRequest, "External reference is required")
	case errors.Is(err, payment.ErrNotConfigured):
		h.log.Error("payment gateway credentials missing")
		writeError(w, http.StatusInternalServerError, "Payment service configuration error")
	case errors.As(err, &gerr):
		details := gerr.Message
		if details == "" {
			details = "Unknown error"
		}
		writeJSON(w, gerr.Status, map[string]interface{}{
			"error":   "Payment initiation failed",
			"details": details,
			"data":    gerr.Body,
		})
	default:
		h.log.Error("initiate payment", zap.String("external_ref", req.ExternalRef), zap.Error(err))
		writeFailure(w, "Internal server error", err)
	}
}
