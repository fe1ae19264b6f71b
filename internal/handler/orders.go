package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/service"
)

// OrderSubmitter is satisfied by *service.OrderService.
type OrderSubmitter interface {
	Submit(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitResult, error)
}

// OrderLifecycle is satisfied by *service.Lifecycle.
type OrderLifecycle interface {
	Get(ctx context.Context, institutionID, id uuid.UUID) (*service.OrderView, error)
	List(ctx context.Context, q service.ListQuery) ([]service.OrderView, error)
	Kitchen(ctx context.Context, q service.KitchenQuery) (*service.KitchenBoard, error)
	Advance(ctx context.Context, institutionID, orderID uuid.UUID, target string) (*service.OrderView, error)
	SetPaymentStatus(ctx context.Context, institutionID, orderID uuid.UUID, status string) (*service.OrderView, error)
	Timeline(ctx context.Context, institutionID, orderID uuid.UUID) ([]database.OrderTimeline, error)
}

// OrderHandler handles order submission, reads and status changes.
type OrderHandler struct {
	submitter OrderSubmitter
	lifecycle OrderLifecycle
	log       *zap.Logger
}

func NewOrderHandler(submitter OrderSubmitter, lifecycle OrderLifecycle, log *zap.Logger) *OrderHandler {
	return &OrderHandler{submitter: submitter, lifecycle: lifecycle, log: logger.OrNop(log)}
}

// RegisterPublicRoutes registers order creation, which POS terminals call
// without a device token.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterRoutes registers endpoints scoped to the device's institution.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/payment-status", h.UpdatePaymentStatus)
	r.Get("/orders/{id}/timeline", h.Timeline)
	r.Get("/kitchen/orders", h.Kitchen)
}

// --- Request / Response types ---

// createOrderRequest mirrors what the POS sends. Subtotal and total are
// accepted but recomputed from the items.
type createOrderRequest struct {
	InstitutionID   string             `json:"institution_id"`
	BranchID        string             `json:"branch_id"`
	OrderType       string             `json:"order_type"`
	TableNumber     string             `json:"table_number"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerEmail   string             `json:"customer_email"`
	CustomerAddress string             `json:"customer_address"`
	DeliveryAddress string             `json:"delivery_address"`
	Items           []orderItemRequest `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	Total           decimal.Decimal    `json:"total"`
	PaymentMethod   string             `json:"payment_method"`
	Notes           string             `json:"notes"`
	Channel         string             `json:"channel"`
}

type orderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	MenuItem   *struct {
		Name string `json:"name"`
	} `json:"menu_item"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int32           `json:"quantity"`
	SelectedVariations []struct {
		OptionName string `json:"option_name"`
	} `json:"selected_variations"`
	SelectedAddOns []struct {
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Quantity int32           `json:"quantity"`
	} `json:"selected_add_ons"`
	SpecialInstructions string `json:"special_instructions"`
}

type createOrderResponse struct {
	Success bool                  `json:"success"`
	Order   *service.SubmitResult `json:"order"`
}

type orderListResponse struct {
	Orders []service.OrderView `json:"orders"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// toSubmitRequest converts the wire body. Malformed ids are rejected here;
// everything else is left to the service's validation.
func (req createOrderRequest) toSubmitRequest() (service.SubmitOrderRequest, error) {
	out := service.SubmitOrderRequest{
		OrderType:       req.OrderType,
		TableNumber:     req.TableNumber,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryFee:     req.DeliveryFee,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Channel:         req.Channel,
	}

	var err error
	if req.InstitutionID != "" {
		if out.InstitutionID, err = uuid.Parse(req.InstitutionID); err != nil {
			return out, errors.New("invalid institution_id")
		}
	}
	if req.BranchID != "" {
		if out.BranchID, err = uuid.Parse(req.BranchID); err != nil {
			return out, errors.New("invalid branch_id")
		}
	}

	out.Items = make([]service.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		line := service.OrderLine{
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			Notes:     it.SpecialInstructions,
		}
		if it.MenuItem != nil && it.MenuItem.Name != "" {
			line.Name = it.MenuItem.Name
		}
		if line.Name == "" {
			line.Name = "Item"
		}
		if it.MenuItemID != "" {
			if line.MenuItemID, err = uuid.Parse(it.MenuItemID); err != nil {
				return out, errors.New("invalid menu_item_id")
			}
		}
		if len(it.SelectedVariations) > 0 {
			line.VariantName = it.SelectedVariations[0].OptionName
		}
		for _, a := range it.SelectedAddOns {
			line.AddOns = append(line.AddOns, service.LineAddOn{Name: a.Name, Price: a.Price, Quantity: a.Quantity})
		}
		out.Items = append(out.Items, line)
	}
	return out, nil
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	submit, err := req.toSubmitRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.submitter.Submit(r.Context(), submit)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{Success: true, Order: result})
}

func (h *OrderHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrItemsNotCreated):
		writeError(w, http.StatusInternalServerError, "Failed to create order items")
	default:
		h.log.Error("create order", zap.Error(err))
		writeFailure(w, "Failed to create order", err)
	}
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	q := service.ListQuery{
		InstitutionID: institutionID,
		Status:        r.URL.Query().Get("status"),
		Limit:         int32(limit),
		Offset:        int32(offset),
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		q.StartDate = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		// end_date is inclusive
		q.EndDate = t.AddDate(0, 0, 1)
	}

	orders, err := h.lifecycle.List(r.Context(), q)
	if err != nil {
		h.writeLifecycleError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order ID")
	if !ok {
		return
	}

	order, err := h.lifecycle.Get(r.Context(), institutionID, orderID)
	if err != nil {
		h.writeLifecycleError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.lifecycle.Advance(r.Context(), institutionID, orderID, req.Status)
	if err != nil {
		h.writeLifecycleError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdatePaymentStatus handles PATCH /orders/{id}/payment-status.
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updatePaymentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.lifecycle.SetPaymentStatus(r.Context(), institutionID, orderID, req.PaymentStatus)
	if err != nil {
		h.writeLifecycleError(w, "update payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Timeline handles GET /orders/{id}/timeline.
func (h *OrderHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order ID")
	if !ok {
		return
	}

	entries, err := h.lifecycle.Timeline(r.Context(), institutionID, orderID)
	if err != nil {
		h.writeLifecycleError(w, "get order timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"timeline": entries})
}

// Kitchen handles GET /kitchen/orders?status=&q=&date=. date defaults to
// today, local time.
func (h *OrderHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}

	loc := businessLocation()
	now := time.Now().In(loc)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
			return
		}
		since = t
	}

	board, err := h.lifecycle.Kitchen(r.Context(), service.KitchenQuery{
		InstitutionID: institutionID,
		Since:         since,
		Until:         since.AddDate(0, 0, 1),
		Status:        r.URL.Query().Get("status"),
		Search:        r.URL.Query().Get("q"),
	})
	if err != nil {
		h.writeLifecycleError(w, "load kitchen orders", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *OrderHandler) writeLifecycleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case service.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op, zap.Error(err))
		writeFailure(w, "internal server error", err)
	}
}
