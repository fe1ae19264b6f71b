package ws

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/realtime"
)

// Event types pushed to screens.
const (
	EventOrderCreated  = "order.created"
	EventOrderUpdated  = "order.updated"
	EventOrderDeleted  = "order.deleted"
	EventOrderPaid     = "order.paid"
	EventAlertResolved = "order.paid.resolved"
)

// OrderChange is the payload of order.created/updated/deleted. Status is
// in display vocabulary.
type OrderChange struct {
	ID            uuid.UUID `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type alertResolved struct {
	OrderID uuid.UUID `json:"order_id"`
	Outcome string    `json:"outcome"`
}

var changeTypes = map[realtime.EventType]string{
	realtime.EventInsert: EventOrderCreated,
	realtime.EventUpdate: EventOrderUpdated,
	realtime.EventDelete: EventOrderDeleted,
}

// ChangeListener forwards change-feed events to the institution's room.
func ChangeListener(hub *Hub) realtime.Listener {
	return func(e realtime.Event) {
		row := e.Row()
		if row == nil || row.InstitutionID == uuid.Nil {
			return
		}
		status, ok := enum.ToUIStatus(row.Status)
		if !ok {
			status = row.Status
		}
		change := OrderChange{
			ID:            row.ID,
			OrderNumber:   row.OrderNumber,
			Status:        status,
			PaymentStatus: row.PaymentStatus,
			UpdatedAt:     row.UpdatedAt,
		}
		if err := hub.Publish(row.InstitutionID, changeTypes[e.Type], change); err != nil {
			hub.log.Error("publish order change", zap.Error(err))
		}
	}
}

// Bridge connects the notifier and the paid-order queue to the hub. The
// returned function unsubscribes from the notifier.
func Bridge(hub *Hub, n *realtime.Notifier, alerts *realtime.PaidAlerts) func() {
	alerts.OnAlert(func(a realtime.Alert) {
		if err := hub.Publish(a.Order.InstitutionID, EventOrderPaid, a); err != nil {
			hub.log.Error("publish paid alert", zap.Error(err))
		}
	})
	alerts.OnResolve(func(a realtime.Alert, outcome string) {
		if err := hub.Publish(a.Order.InstitutionID, EventAlertResolved, alertResolved{OrderID: a.Order.ID, Outcome: outcome}); err != nil {
			hub.log.Error("publish alert resolution", zap.Error(err))
		}
	})
	return n.Subscribe(ChangeListener(hub))
}
