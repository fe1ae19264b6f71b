package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrCheckingOut  = errors.New("cart is being checked out")
	ErrTooManyCarts = errors.New("too many open carts")
)

// Snapshot is the serialisable view of a cart.
type Snapshot struct {
	ID              uuid.UUID `json:"id"`
	InstitutionID   uuid.UUID `json:"institution_id"`
	OrderType       string    `json:"order_type"`
	TableNumber     string    `json:"table_number,omitempty"`
	DeliveryAddress string    `json:"delivery_address,omitempty"`
	Lines           []Line    `json:"lines"`
	Totals          Totals    `json:"totals"`
}

func (c *Cart) Snapshot(p Policy) Snapshot {
	return Snapshot{
		ID:              c.ID,
		InstitutionID:   c.InstitutionID,
		OrderType:       c.OrderType,
		TableNumber:     c.TableNumber,
		DeliveryAddress: c.DeliveryAddress,
		Lines:           c.Lines(),
		Totals:          c.Totals(p),
	}
}

type entry struct {
	cart        *Cart
	lastUsed    time.Time
	checkingOut bool
}

// Registry keeps one cart per POS session. Each cart is only touched while
// the registry lock is held.
type Registry struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*entry
	max   int
	now   func() time.Time
}

// NewRegistry holds at most maxCarts live carts; zero means no limit.
func NewRegistry(maxCarts int) *Registry {
	return &Registry{carts: make(map[uuid.UUID]*entry), max: maxCarts, now: time.Now}
}

// Create registers a new empty cart for the institution's menu and
// returns its id.
func (r *Registry) Create(institutionID uuid.UUID) (uuid.UUID, error) {
	c := New()
	c.InstitutionID = institutionID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.carts) >= r.max {
		return uuid.Nil, ErrTooManyCarts
	}
	r.carts[c.ID] = &entry{cart: c, lastUsed: r.now()}
	return c.ID, nil
}

// Update runs fn against the cart with exclusive access. A cart that is
// being checked out cannot change.
func (r *Registry) Update(id uuid.UUID, fn func(*Cart) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[id]
	if !ok {
		return ErrCartNotFound
	}
	if e.checkingOut {
		return ErrCheckingOut
	}
	e.lastUsed = r.now()
	return fn(e.cart)
}

// BeginCheckout runs fn against the cart and, if it succeeds, reserves the
// cart until Release or Delete. Only one checkout of a cart can be in
// flight; others get ErrCheckingOut.
func (r *Registry) BeginCheckout(id uuid.UUID, fn func(*Cart) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[id]
	if !ok {
		return ErrCartNotFound
	}
	if e.checkingOut {
		return ErrCheckingOut
	}
	if err := fn(e.cart); err != nil {
		return err
	}
	e.checkingOut = true
	e.lastUsed = r.now()
	return nil
}

// Release ends a checkout that did not produce an order.
func (r *Registry) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.carts[id]; ok {
		e.checkingOut = false
		e.lastUsed = r.now()
	}
}

// Delete discards a cart.
func (r *Registry) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[id]; !ok {
		return false
	}
	delete(r.carts, id)
	return true
}

// Sweep drops carts idle for longer than maxIdle and returns how many went.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.carts {
		if !e.checkingOut && e.lastUsed.Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
