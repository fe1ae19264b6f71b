package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chopbox/api/internal/realtime"
)

// AlertQueue is satisfied by *realtime.PaidAlerts.
type AlertQueue interface {
	Pending(institutionID uuid.UUID) []realtime.Alert
	Accept(orderID uuid.UUID) (realtime.Alert, bool)
	Decline(orderID uuid.UUID) (realtime.Alert, bool)
}

// NotificationHandler exposes the paid-order alert queue to cashiers.
type NotificationHandler struct {
	alerts AlertQueue
}

func NewNotificationHandler(alerts AlertQueue) *NotificationHandler {
	return &NotificationHandler{alerts: alerts}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Post("/notifications/{id}/accept", h.Accept)
	r.Post("/notifications/{id}/decline", h.Decline)
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": h.alerts.Pending(institutionID)})
}

// Accept handles POST /notifications/{id}/accept.
func (h *NotificationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.alerts.Accept)
}

// Decline handles POST /notifications/{id}/decline.
func (h *NotificationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.alerts.Decline)
}

func (h *NotificationHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID) (realtime.Alert, bool)) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order ID")
	if !ok {
		return
	}

	// Another institution's alert must not be resolvable, so check before
	// removing it.
	for _, a := range h.alerts.Pending(institutionID) {
		if a.Order.ID == orderID {
			alert, ok := fn(orderID)
			if !ok {
				break
			}
			writeJSON(w, http.StatusOK, alert)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}
