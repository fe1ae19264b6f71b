package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/logger"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidPaymentStatus = errors.New("invalid payment_status")
)

// --- Transition table ---

// nextStatus is the action the kitchen screen offers for each status.
var nextStatus = map[string]string{
	enum.StatusPending:   enum.StatusPreparing,
	enum.StatusConfirmed: enum.StatusPreparing,
	enum.StatusPreparing: enum.StatusReady,
	enum.StatusReady:     enum.StatusCompleted,
}

var statusRank = map[string]int{
	enum.StatusPending:   0,
	enum.StatusConfirmed: 1,
	enum.StatusPreparing: 2,
	enum.StatusReady:     3,
	enum.StatusCompleted: 4,
}

// NextStatus returns the suggested next status. Completed and cancelled
// orders have none.
func NextStatus(ui string) (string, bool) {
	s, ok := nextStatus[ui]
	return s, ok
}

func isTerminal(ui string) bool {
	return ui == enum.StatusCompleted || ui == enum.StatusCancelled
}

// ValidateTransition allows forward moves along the lifecycle and
// cancellation of any non-terminal order.
func ValidateTransition(from, to string) error {
	if _, ok := enum.ToStorageStatus(to); !ok {
		return invalid(fmt.Errorf("%w: %q", ErrInvalidStatus, to))
	}
	if isTerminal(from) {
		return invalid(fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from))
	}
	if to == enum.StatusCancelled {
		return nil
	}
	fromRank, ok := statusRank[from]
	if !ok || statusRank[to] <= fromRank {
		return invalid(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to))
	}
	return nil
}

// --- Store ---

// LifecycleStore defines the DB methods needed to read and transition orders.
// Satisfied by *database.Queries.
type LifecycleStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetInstitutionOrder(ctx context.Context, arg database.GetInstitutionOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemAddon, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemAddonsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItemAddon, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error)
	CreateOrderTimeline(ctx context.Context, arg database.CreateOrderTimelineParams) (database.OrderTimeline, error)
	ListOrderTimeline(ctx context.Context, orderID uuid.UUID) ([]database.OrderTimeline, error)
}

// --- Status command ---

// StatusCommand changes the displayed status of one order and can undo
// the change from the snapshot taken when it was applied.
type StatusCommand struct {
	board   *Board
	orderID uuid.UUID
	target  string

	prev    OrderView
	at      time.Time
	applied bool
}

func (c *StatusCommand) Apply(at time.Time) error {
	prev, ok := c.board.setStatus(c.orderID, c.target, at)
	if !ok {
		return ErrOrderNotFound
	}
	c.prev = prev
	c.at = at
	c.applied = true
	return nil
}

// Revert undoes Apply unless the order has moved on since. It reports
// whether the previous status was put back.
func (c *StatusCommand) Revert() bool {
	if !c.applied {
		return false
	}
	c.applied = false
	return c.board.restore(c.prev, c.target, c.at)
}

// --- Lifecycle ---

// Lifecycle moves orders through their statuses.
type Lifecycle struct {
	store LifecycleStore
	board *Board
	log   *zap.Logger
	now   func() time.Time
}

func NewLifecycle(store LifecycleStore, board *Board, log *zap.Logger) *Lifecycle {
	if board == nil {
		board = NewBoard()
	}
	return &Lifecycle{store: store, board: board, log: logger.OrNop(log), now: time.Now}
}

func (l *Lifecycle) Board() *Board { return l.board }

// Read loads an order with its items straight from the store.
func (l *Lifecycle) Read(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	o, err := l.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return l.view(ctx, o)
}

// Get loads an order of the institution with its items.
func (l *Lifecycle) Get(ctx context.Context, institutionID, id uuid.UUID) (*OrderView, error) {
	o, err := l.store.GetInstitutionOrder(ctx, database.GetInstitutionOrderParams{ID: id, InstitutionID: institutionID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return l.view(ctx, o)
}

func (l *Lifecycle) view(ctx context.Context, o database.Order) (*OrderView, error) {
	items, err := l.store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	addons, err := l.store.ListOrderItemAddonsByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list order item add-ons: %w", err)
	}
	v := NewOrderView(o, items, addons)
	return &v, nil
}

// ListQuery filters order listings. Status uses the UI vocabulary.
type ListQuery struct {
	InstitutionID uuid.UUID
	Status        string
	StartDate     time.Time
	EndDate       time.Time
	Limit         int32
	Offset        int32
}

// List returns order headers without items, newest first.
// views assembles many orders with two queries in total.
func (l *Lifecycle) views(ctx context.Context, orders []database.Order) ([]OrderView, error) {
	if len(orders) == 0 {
		return []OrderView{}, nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := l.store.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	addons, err := l.store.ListOrderItemAddonsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order item add-ons: %w", err)
	}

	itemsByOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	orderOfItem := make(map[uuid.UUID]uuid.UUID, len(items))
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
		orderOfItem[it.ID] = it.OrderID
	}
	addonsByOrder := make(map[uuid.UUID][]database.OrderItemAddon, len(orders))
	for _, a := range addons {
		oid := orderOfItem[a.OrderItemID]
		addonsByOrder[oid] = append(addonsByOrder[oid], a)
	}

	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = NewOrderView(o, itemsByOrder[o.ID], addonsByOrder[o.ID])
	}
	return out, nil
}

func (l *Lifecycle) List(ctx context.Context, q ListQuery) ([]OrderView, error) {
	params := database.ListOrdersParams{
		InstitutionID: q.InstitutionID,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if q.Status != "" {
		db, ok := enum.ToStorageStatus(q.Status)
		if !ok {
			return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status))
		}
		params.Status = pgtype.Text{String: db, Valid: true}
	}
	if !q.StartDate.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: q.StartDate, Valid: true}
	}
	if !q.EndDate.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: q.EndDate, Valid: true}
	}

	rows, err := l.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]OrderView, len(rows))
	for i, o := range rows {
		out[i] = NewOrderView(o, nil, nil)
	}
	return out, nil
}

// KitchenQuery selects what the kitchen screen shows.
type KitchenQuery struct {
	InstitutionID uuid.UUID
	Since         time.Time
	Until         time.Time
	Status        string
	Search        string
	Limit         int32
}

// KitchenBoard is the kitchen screen payload.
type KitchenBoard struct {
	Orders []OrderView    `json:"orders"`
	Counts map[string]int `json:"counts"`
}

// Kitchen reloads the institution's orders since q.Since into the board and
// returns the filtered view.
func (l *Lifecycle) Kitchen(ctx context.Context, q KitchenQuery) (*KitchenBoard, error) {
	if q.Status != "" {
		if _, ok := enum.ToStorageStatus(q.Status); !ok {
			return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status))
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}

	params := database.ListOrdersParams{InstitutionID: q.InstitutionID, Limit: limit}
	if !q.Since.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: q.Since, Valid: true}
	}
	if !q.Until.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: q.Until, Valid: true}
	}
	rows, err := l.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	views, err := l.views(ctx, rows)
	if err != nil {
		return nil, err
	}
	l.board.Load(q.InstitutionID, views)

	return &KitchenBoard{
		Orders: l.board.List(BoardFilter{
			InstitutionID: q.InstitutionID,
			Status:        q.Status,
			Query:         q.Search,
		}),
		Counts: l.board.Counts(q.InstitutionID),
	}, nil
}

// Advance moves an order to target (UI vocabulary). The board shows the
// new status before the store is written; a failed write puts the previous
// status back and returns the error. Nothing is retried.
func (l *Lifecycle) Advance(ctx context.Context, institutionID, orderID uuid.UUID, target string) (*OrderView, error) {
	storageStatus, ok := enum.ToStorageStatus(target)
	if !ok {
		return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidStatus, target))
	}

	current, err := l.onBoard(ctx, institutionID, orderID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(current.Status, target); err != nil {
		return nil, err
	}

	cmd := &StatusCommand{board: l.board, orderID: orderID, target: target}
	if err := cmd.Apply(l.now()); err != nil {
		return nil, err
	}

	updated, err := l.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: storageStatus,
	})
	if err != nil {
		if !cmd.Revert() {
			l.log.Warn("order moved on during failed status write, keeping newer status",
				zap.String("order_id", orderID.String()), zap.String("target", target))
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	l.board.Sync(updated.ID, updated.Status, updated.PaymentStatus, updated.UpdatedAt)

	l.appendTimeline(ctx, orderID, storageStatus, fmt.Sprintf("Order status changed to %s", target))

	v, _ := l.board.Get(orderID)
	return &v, nil
}

// SetPaymentStatus records a payment status change for an order.
func (l *Lifecycle) SetPaymentStatus(ctx context.Context, institutionID, orderID uuid.UUID, status string) (*OrderView, error) {
	if !enum.IsValidPaymentStatus(status) {
		return nil, invalid(fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, status))
	}
	if _, err := l.onBoard(ctx, institutionID, orderID); err != nil {
		return nil, err
	}

	updated, err := l.store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
		ID:            orderID,
		PaymentStatus: status,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	l.board.Sync(updated.ID, updated.Status, updated.PaymentStatus, updated.UpdatedAt)

	l.appendTimeline(ctx, orderID, "payment_"+status, fmt.Sprintf("Payment marked as %s", status))

	v, _ := l.board.Get(orderID)
	return &v, nil
}

// Timeline returns the append-only event log of an order.
func (l *Lifecycle) Timeline(ctx context.Context, institutionID, orderID uuid.UUID) ([]database.OrderTimeline, error) {
	if _, err := l.store.GetInstitutionOrder(ctx, database.GetInstitutionOrderParams{ID: orderID, InstitutionID: institutionID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	entries, err := l.store.ListOrderTimeline(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order timeline: %w", err)
	}
	return entries, nil
}

// onBoard returns the displayed order, loading it into the board first if
// this process has not seen it yet.
func (l *Lifecycle) onBoard(ctx context.Context, institutionID, orderID uuid.UUID) (OrderView, error) {
	if v, ok := l.board.Get(orderID); ok {
		if v.InstitutionID != institutionID {
			return OrderView{}, ErrOrderNotFound
		}
		return v, nil
	}
	v, err := l.Get(ctx, institutionID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	l.board.Put(*v)
	return *v, nil
}

func (l *Lifecycle) appendTimeline(ctx context.Context, orderID uuid.UUID, eventType, description string) {
	if _, err := l.store.CreateOrderTimeline(ctx, database.CreateOrderTimelineParams{
		OrderID:          orderID,
		EventType:        eventType,
		EventDescription: description,
	}); err != nil {
		l.log.Warn("append order timeline",
			zap.String("order_id", orderID.String()),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
