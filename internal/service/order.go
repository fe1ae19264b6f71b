package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/cart"
	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/logger"
)

const maxOrderNumberAttempts = 5

// Errors returned by the order service.
var (
	ErrInstitutionRequired     = errors.New("institution_id is required")
	ErrCustomerNameRequired    = errors.New("customer_name is required")
	ErrCustomerPhoneRequired   = errors.New("customer_phone is required unless paying cash")
	ErrEmptyItems              = errors.New("items are required")
	ErrDeliveryAddressRequired = errors.New("delivery_address is required for delivery orders")
	ErrBranchNotFound          = errors.New("no branch found for institution, provide branch_id")
	ErrInvalidQuantity         = errors.New("quantity must be > 0")
	ErrItemNameRequired        = errors.New("item name is required")
	ErrInvalidPrice            = errors.New("price must not be negative")
	ErrItemsNotCreated         = errors.New("failed to create order items")
)

// ValidationError marks a request the caller must fix. Nothing has been
// written when one is returned.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error { return &ValidationError{Err: err} }

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// OrderStore defines the DB methods needed to submit orders.
// Satisfied by *database.Queries.
type OrderStore interface {
	GetFirstBranch(ctx context.Context, institutionID uuid.UUID) (database.Branch, error)
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemAddons(ctx context.Context, arg []database.CreateOrderItemAddonsParams) (int64, error)
	CreateOrderTimeline(ctx context.Context, arg database.CreateOrderTimelineParams) (database.OrderTimeline, error)
	GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	UpdateCustomerContact(ctx context.Context, arg database.UpdateCustomerContactParams) error
}

// SubmitOrderRequest is the input for creating an order. OrderType uses the
// UI vocabulary (dine-in, takeaway, delivery).
type SubmitOrderRequest struct {
	InstitutionID   uuid.UUID
	BranchID        uuid.UUID
	OrderType       string
	TableNumber     string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	CustomerAddress string
	DeliveryAddress string
	DeliveryFee     decimal.Decimal
	PaymentMethod   string
	Notes           string
	Channel         string
	Items           []OrderLine
}

// OrderLine is a priced line captured at submission time.
type OrderLine struct {
	MenuItemID  uuid.UUID
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int32
	VariantName string
	Notes       string
	AddOns      []LineAddOn
}

type LineAddOn struct {
	Name     string
	Price    decimal.Decimal
	Quantity int32
}

// LinesFromCart snapshots cart lines for submission.
func LinesFromCart(lines []cart.Line) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		ol := OrderLine{
			MenuItemID:  l.MenuItemID,
			Name:        l.Name,
			UnitPrice:   l.UnitPrice,
			Quantity:    int32(l.Quantity),
			VariantName: l.VariantLabel(),
			Notes:       l.Instructions,
		}
		for _, a := range l.AddOns {
			ol.AddOns = append(ol.AddOns, LineAddOn{Name: a.Name, Price: a.Price, Quantity: 1})
		}
		out = append(out, ol)
	}
	return out
}

// SubmitResult identifies the persisted order.
type SubmitResult struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	ItemsCreated  int             `json:"items_created"`
}

// OrderService turns submitted carts into orders.
type OrderService struct {
	store   OrderStore
	taxRate decimal.Decimal
	log     *zap.Logger

	now  func() time.Time
	intn func(n int) int
}

// NewOrderService creates a new OrderService. taxRate is applied to the
// line subtotal; zero disables tax.
func NewOrderService(store OrderStore, taxRate decimal.Decimal, log *zap.Logger) *OrderService {
	return &OrderService{
		store:   store,
		taxRate: taxRate,
		log:     logger.OrNop(log),
		now:     time.Now,
		intn:    rand.Intn,
	}
}

// Submit validates the request and writes the order header, its line items,
// their add-ons and a creation timeline entry. The writes are independent:
// only a header with zero persisted items is rolled back.
func (s *OrderService) Submit(ctx context.Context, req SubmitOrderRequest) (*SubmitResult, error) {
	if err := validateSubmit(&req); err != nil {
		return nil, err
	}

	// --- Resolve branch ---
	branchID := req.BranchID
	if branchID == uuid.Nil {
		branch, err := s.store.GetFirstBranch(ctx, req.InstitutionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, invalid(ErrBranchNotFound)
			}
			return nil, fmt.Errorf("get branch: %w", err)
		}
		branchID = branch.ID
	}

	// --- Money ---
	subtotal := decimal.Zero
	for _, it := range req.Items {
		subtotal = subtotal.Add(lineTotal(it))
	}
	tax := decimal.Zero
	if s.taxRate.IsPositive() {
		tax = subtotal.Mul(s.taxRate).Round(2)
	}
	deliveryFee := decimal.Zero
	if req.OrderType == enum.OrderTypeDelivery && req.DeliveryFee.IsPositive() {
		deliveryFee = req.DeliveryFee
	}
	total := subtotal.Add(tax).Add(deliveryFee)

	paymentStatus := enum.PaymentStatusPending
	if req.PaymentMethod == enum.PaymentMethodCash {
		paymentStatus = enum.PaymentStatusPaid
	}

	customerID := s.findOrCreateCustomer(ctx, req)

	params := database.CreateOrderParams{
		InstitutionID: req.InstitutionID,
		BranchID:      branchID,
		CustomerID:    customerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: database.Text(req.CustomerEmail),
		TableNumber:   database.Text(req.TableNumber),
		DeliveryType:  enum.ToStorageOrderType(req.OrderType),
		Channel:       req.Channel,
		Subtotal:      database.DecimalToNumeric(subtotal),
		TaxAmount:     database.DecimalToNumeric(tax),
		DeliveryFee:   database.DecimalToNumeric(deliveryFee),
		TotalAmount:   database.DecimalToNumeric(total),
		Status:        enum.DBStatusPending,
		PaymentMethod: database.Text(req.PaymentMethod),
		PaymentStatus: paymentStatus,
		Notes:         database.Text(req.Notes),
	}
	if req.OrderType == enum.OrderTypeDelivery {
		params.DeliveryAddress = database.Text(req.DeliveryAddress)
	}

	// --- Insert header ---
	// A unique violation on order_number means another submission won the
	// race after our existence check; pick a new number and try again.
	var order database.Order
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		params.OrderNumber = s.uniqueOrderNumber(ctx)
		order, err = s.store.CreateOrder(ctx, params)
		if err == nil || !isOrderNumberConflict(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var addons []database.CreateOrderItemAddonsParams
	created := 0
	for i, it := range req.Items {
		item, err := s.store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			MenuItemID:  nullableUUID(it.MenuItemID),
			ItemName:    it.Name,
			UnitPrice:   database.DecimalToNumeric(it.UnitPrice),
			Quantity:    it.Quantity,
			TotalPrice:  database.DecimalToNumeric(lineTotal(it)),
			VariantName: database.Text(it.VariantName),
			Notes:       database.Text(it.Notes),
		})
		if err != nil {
			s.log.Warn("create order item",
				zap.String("order_id", order.ID.String()),
				zap.Int("line", i),
				zap.String("item_name", it.Name),
				zap.Error(err))
			continue
		}
		created++
		for _, a := range it.AddOns {
			qty := a.Quantity
			if qty <= 0 {
				qty = 1
			}
			addons = append(addons, database.CreateOrderItemAddonsParams{
				OrderItemID: item.ID,
				AddonName:   a.Name,
				AddonPrice:  database.DecimalToNumeric(a.Price),
				Quantity:    qty,
			})
		}
	}

	if created == 0 {
		if err := s.store.DeleteOrder(ctx, order.ID); err != nil {
			s.log.Error("roll back order without items",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
		return nil, ErrItemsNotCreated
	}

	// --- Add-ons (best effort) ---
	if len(addons) > 0 {
		if _, err := s.store.CreateOrderItemAddons(ctx, addons); err != nil {
			s.log.Warn("create order item add-ons",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	// --- Timeline (best effort) ---
	description := "Order created from POS"
	if paymentStatus == enum.PaymentStatusPaid {
		description = fmt.Sprintf("Order created from POS (Payment received via %s)", req.PaymentMethod)
	}
	if _, err := s.store.CreateOrderTimeline(ctx, database.CreateOrderTimelineParams{
		OrderID:          order.ID,
		EventType:        enum.DBStatusPending,
		EventDescription: description,
	}); err != nil {
		s.log.Warn("create order timeline",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	s.log.Info("order submitted",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", created),
		zap.Int("items_requested", len(req.Items)))

	return &SubmitResult{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: order.PaymentStatus,
		Total:         total,
		ItemsCreated:  created,
	}, nil
}

func validateSubmit(req *SubmitOrderRequest) error {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)

	if req.InstitutionID == uuid.Nil {
		return invalid(ErrInstitutionRequired)
	}
	if req.CustomerName == "" {
		return invalid(ErrCustomerNameRequired)
	}
	if req.CustomerPhone == "" {
		if req.PaymentMethod != enum.PaymentMethodCash {
			return invalid(ErrCustomerPhoneRequired)
		}
		req.CustomerPhone = enum.PhonePlaceholder
	}
	if len(req.Items) == 0 {
		return invalid(ErrEmptyItems)
	}
	if req.OrderType == enum.OrderTypeDelivery && req.DeliveryAddress == "" {
		return invalid(ErrDeliveryAddressRequired)
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return invalid(fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity))
		}
		if strings.TrimSpace(it.Name) == "" {
			return invalid(fmt.Errorf("item[%d]: %w", i, ErrItemNameRequired))
		}
		if it.UnitPrice.IsNegative() {
			return invalid(fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice))
		}
		for j, a := range it.AddOns {
			if a.Price.IsNegative() {
				return invalid(fmt.Errorf("item[%d].add_ons[%d]: %w", i, j, ErrInvalidPrice))
			}
		}
	}
	if req.Channel == "" {
		req.Channel = enum.ChannelPOS
	}
	return nil
}

// lineTotal is unit price times quantity. Add-on prices are already part of
// the unit price.
func lineTotal(it OrderLine) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity))
}

// generateOrderNumber formats ORD-<unix millis>-<3 random digits>.
func (s *OrderService) generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%03d", s.now().UnixMilli(), s.intn(1000))
}

// uniqueOrderNumber checks up to maxOrderNumberAttempts candidates and
// returns the last one if none could be confirmed unique.
func (s *OrderService) uniqueOrderNumber(ctx context.Context) string {
	var candidate string
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		candidate = s.generateOrderNumber()
		exists, err := s.store.OrderNumberExists(ctx, candidate)
		if err != nil {
			s.log.Warn("check order number", zap.String("order_number", candidate), zap.Error(err))
			return candidate
		}
		if !exists {
			return candidate
		}
	}
	s.log.Warn("order number uniqueness not confirmed", zap.String("order_number", candidate))
	return candidate
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// findOrCreateCustomer links the order to a customer record keyed by phone.
// Failures are logged and leave the order without a customer reference.
func (s *OrderService) findOrCreateCustomer(ctx context.Context, req SubmitOrderRequest) pgtype.UUID {
	if req.CustomerPhone == "" || req.CustomerPhone == enum.PhonePlaceholder {
		return pgtype.UUID{}
	}

	existing, err := s.store.GetCustomerByPhone(ctx, req.CustomerPhone)
	switch {
	case err == nil:
		if err := s.store.UpdateCustomerContact(ctx, database.UpdateCustomerContactParams{
			Phone:   req.CustomerPhone,
			Name:    req.CustomerName,
			Email:   database.Text(req.CustomerEmail),
			Address: database.Text(req.CustomerAddress),
		}); err != nil {
			s.log.Warn("update customer", zap.String("customer_id", existing.ID.String()), zap.Error(err))
		}
		return pgtype.UUID{Bytes: existing.ID, Valid: true}
	case errors.Is(err, pgx.ErrNoRows):
		c, err := s.store.CreateCustomer(ctx, database.CreateCustomerParams{
			Name:    req.CustomerName,
			Phone:   req.CustomerPhone,
			Email:   database.Text(req.CustomerEmail),
			Address: database.Text(req.CustomerAddress),
		})
		if err != nil {
			s.log.Warn("create customer", zap.Error(err))
			return pgtype.UUID{}
		}
		return pgtype.UUID{Bytes: c.ID, Valid: true}
	default:
		s.log.Warn("look up customer", zap.Error(err))
		return pgtype.UUID{}
	}
}

func nullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
