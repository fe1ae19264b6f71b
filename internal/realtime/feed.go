// Package realtime turns the orders change feed into in-process events.
// One upstream subscription is owned by a Notifier; everything else
// subscribes to the Notifier.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// OrderRow is the subset of an orders row carried on the change feed.
type OrderRow struct {
	ID            uuid.UUID `json:"id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Event is one change to the orders table. New is nil for deletes, Old is
// nil for inserts.
type Event struct {
	Type EventType `json:"event"`
	New  *OrderRow `json:"new"`
	Old  *OrderRow `json:"old"`
}

// Row returns whichever row image the event carries, preferring New.
func (e Event) Row() *OrderRow {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

// FeedStatus is the state of the upstream subscription.
type FeedStatus string

const (
	StatusConnecting FeedStatus = "connecting"
	StatusConnected  FeedStatus = "connected"
	StatusError      FeedStatus = "error"
	StatusTimeout    FeedStatus = "timeout"
	StatusClosed     FeedStatus = "closed"
)

// Feed is an upstream change feed. Run blocks delivering events to handle
// until ctx is cancelled or the subscription fails, reporting state
// changes to status.
type Feed interface {
	Run(ctx context.Context, handle func(Event), status func(FeedStatus, error)) error
}
