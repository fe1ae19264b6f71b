package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/service"
)

// Outcomes of a paid-order alert.
const (
	OutcomeAccepted = "accepted"
	OutcomeDeclined = "declined"
	OutcomeExpired  = "expired"
)

// OrderReader re-reads an order with its items.
// Satisfied by *service.Lifecycle.
type OrderReader interface {
	Read(ctx context.Context, id uuid.UUID) (*service.OrderView, error)
}

// Alert is a paid order waiting for a cashier to accept or decline it.
type Alert struct {
	Order      service.OrderView `json:"order"`
	ReceivedAt time.Time         `json:"received_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

type pendingAlert struct {
	alert Alert
	timer *time.Timer
}

// IsPaidTransition reports whether e is an order becoming paid: inserted
// already paid, or updated from any other payment status to paid.
func IsPaidTransition(e Event) bool {
	if e.New == nil || e.New.PaymentStatus != enum.PaymentStatusPaid {
		return false
	}
	if e.Type == EventInsert || e.Old == nil {
		return true
	}
	return e.Old.PaymentStatus != enum.PaymentStatusPaid
}

// PaidAlerts queues paid-order alerts. Each alert is declined automatically
// when its TTL runs out.
type PaidAlerts struct {
	reader      OrderReader
	ttl         time.Duration
	readTimeout time.Duration
	log         *zap.Logger
	now         func() time.Time

	mu        sync.Mutex
	pending   map[uuid.UUID]*pendingAlert
	onAlert   func(Alert)
	onResolve func(Alert, string)
}

func NewPaidAlerts(reader OrderReader, ttl time.Duration, log *zap.Logger) *PaidAlerts {
	return &PaidAlerts{
		reader:      reader,
		ttl:         ttl,
		readTimeout: 5 * time.Second,
		log:         logger.OrNop(log),
		now:         time.Now,
		pending:     make(map[uuid.UUID]*pendingAlert),
	}
}

// OnAlert sets a hook called for each newly queued alert.
func (p *PaidAlerts) OnAlert(fn func(Alert)) {
	p.mu.Lock()
	p.onAlert = fn
	p.mu.Unlock()
}

// OnResolve sets a hook called when an alert leaves the queue.
func (p *PaidAlerts) OnResolve(fn func(Alert, string)) {
	p.mu.Lock()
	p.onResolve = fn
	p.mu.Unlock()
}

// Attach subscribes the queue to n.
func (p *PaidAlerts) Attach(n *Notifier) func() {
	return n.Subscribe(p.Handle)
}

// Handle is the change-feed listener.
func (p *PaidAlerts) Handle(e Event) {
	if !IsPaidTransition(e) {
		return
	}
	id := e.New.ID

	p.mu.Lock()
	_, dup := p.pending[id]
	p.mu.Unlock()
	if dup {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.readTimeout)
	order, err := p.reader.Read(ctx, id)
	cancel()
	if err != nil {
		p.log.Warn("re-read paid order", zap.String("order_id", id.String()), zap.Error(err))
		return
	}

	now := p.now()
	alert := Alert{Order: *order, ReceivedAt: now, ExpiresAt: now.Add(p.ttl)}

	p.mu.Lock()
	if _, dup := p.pending[id]; dup {
		p.mu.Unlock()
		return
	}
	entry := &pendingAlert{alert: alert}
	entry.timer = time.AfterFunc(p.ttl, func() { p.resolve(id, OutcomeExpired) })
	p.pending[id] = entry
	hook := p.onAlert
	p.mu.Unlock()

	p.log.Info("paid order alert",
		zap.String("order_id", id.String()),
		zap.String("order_number", order.OrderNumber))
	if hook != nil {
		hook(alert)
	}
}

// Accept removes the alert for orderID.
func (p *PaidAlerts) Accept(orderID uuid.UUID) (Alert, bool) {
	return p.resolve(orderID, OutcomeAccepted)
}

// Decline removes the alert for orderID.
func (p *PaidAlerts) Decline(orderID uuid.UUID) (Alert, bool) {
	return p.resolve(orderID, OutcomeDeclined)
}

func (p *PaidAlerts) resolve(orderID uuid.UUID, outcome string) (Alert, bool) {
	p.mu.Lock()
	entry, ok := p.pending[orderID]
	if !ok {
		p.mu.Unlock()
		return Alert{}, false
	}
	delete(p.pending, orderID)
	entry.timer.Stop()
	hook := p.onResolve
	p.mu.Unlock()

	if hook != nil {
		hook(entry.alert, outcome)
	}
	return entry.alert, true
}

// Pending lists the institution's queued alerts, oldest first.
func (p *PaidAlerts) Pending(institutionID uuid.UUID) []Alert {
	p.mu.Lock()
	out := make([]Alert, 0, len(p.pending))
	for _, e := range p.pending {
		if e.alert.Order.InstitutionID == institutionID {
			out = append(out, e.alert)
		}
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out
}

// Close stops all countdowns without resolving the alerts.
func (p *PaidAlerts) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.pending {
		e.timer.Stop()
		delete(p.pending, id)
	}
}
