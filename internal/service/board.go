package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chopbox/api/internal/enum"
)

// Board is the displayed state of orders on kitchen and POS screens. It is
// updated optimistically by status transitions and reconciled from the
// store and the change feed.
type Board struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]OrderView
}

func NewBoard() *Board {
	return &Board{orders: make(map[uuid.UUID]OrderView)}
}

// BoardFilter narrows List. Zero values match everything.
type BoardFilter struct {
	InstitutionID uuid.UUID
	Status        string
	Query         string
}

// Load replaces every entry of the institution with orders.
func (b *Board) Load(institutionID uuid.UUID, orders []OrderView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, o := range b.orders {
		if o.InstitutionID == institutionID {
			delete(b.orders, id)
		}
	}
	for _, o := range orders {
		b.orders[o.ID] = o
	}
}

func (b *Board) Put(o OrderView) {
	b.mu.Lock()
	b.orders[o.ID] = o
	b.mu.Unlock()
}

func (b *Board) Get(id uuid.UUID) (OrderView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

func (b *Board) Remove(id uuid.UUID) {
	b.mu.Lock()
	delete(b.orders, id)
	b.mu.Unlock()
}

// List returns matching orders, newest first. Query matches order number,
// customer name, customer phone or any item name, case-insensitively.
func (b *Board) List(f BoardFilter) []OrderView {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	b.mu.RLock()
	out := make([]OrderView, 0, len(b.orders))
	for _, o := range b.orders {
		if f.InstitutionID != uuid.Nil && o.InstitutionID != f.InstitutionID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if q != "" && !matches(o, q) {
			continue
		}
		out = append(out, o)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(o OrderView, q string) bool {
	if strings.Contains(strings.ToLower(o.OrderNumber), q) ||
		strings.Contains(strings.ToLower(o.CustomerName), q) ||
		strings.Contains(strings.ToLower(o.CustomerPhone), q) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			return true
		}
	}
	return false
}

// Counts buckets an institution's orders the way the kitchen header shows
// them; confirmed orders count as pending.
func (b *Board) Counts(institutionID uuid.UUID) map[string]int {
	counts := map[string]int{
		enum.StatusPending:   0,
		enum.StatusPreparing: 0,
		enum.StatusReady:     0,
		enum.StatusCompleted: 0,
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.InstitutionID != institutionID {
			continue
		}
		switch o.Status {
		case enum.StatusPending, enum.StatusConfirmed:
			counts[enum.StatusPending]++
		case enum.StatusPreparing, enum.StatusReady, enum.StatusCompleted:
			counts[o.Status]++
		}
	}
	return counts
}

// setStatus swaps the displayed status and returns the previous view.
func (b *Board) setStatus(id uuid.UUID, status string, at time.Time) (OrderView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return OrderView{}, false
	}
	prev := o
	o.Status = status
	o.UpdatedAt = at
	b.orders[id] = o
	return prev, true
}

// restore puts back the status fields of a previous view if the entry still
// shows the status and time written by the change being undone. A newer
// change, local or from the feed, wins and is left alone.
func (b *Board) restore(prev OrderView, status string, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[prev.ID]
	if !ok || o.Status != status || !o.UpdatedAt.Equal(at) {
		return false
	}
	o.Status = prev.Status
	o.UpdatedAt = prev.UpdatedAt
	b.orders[prev.ID] = o
	return true
}

// Sync applies a status change observed on the change feed. Orders not on
// the board are ignored.
func (b *Board) Sync(id uuid.UUID, dbStatus, paymentStatus string, updatedAt time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return false
	}
	o.Status = uiStatus(dbStatus)
	if paymentStatus != "" {
		o.PaymentStatus = paymentStatus
	}
	if !updatedAt.IsZero() {
		o.UpdatedAt = updatedAt
	}
	b.orders[id] = o
	return true
}
