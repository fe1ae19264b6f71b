package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/cart"
	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/menu"
	"github.com/chopbox/api/internal/service"
)

// ItemLookup is satisfied by *menu.Service.
type ItemLookup interface {
	GetItem(ctx context.Context, institutionID, itemID uuid.UUID) (menu.Item, error)
}

// CartHandler exposes server-held carts for terminals that do not keep
// their own.
type CartHandler struct {
	carts     *cart.Registry
	items     ItemLookup
	submitter OrderSubmitter
	policy    cart.Policy
	log       *zap.Logger
}

func NewCartHandler(carts *cart.Registry, items ItemLookup, submitter OrderSubmitter, policy cart.Policy, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, items: items, submitter: submitter, policy: policy, log: logger.OrNop(log)}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Discard)
		r.Post("/{id}/items", h.AddItem)
		r.Patch("/{id}/items/{lid}", h.UpdateLine)
		r.Delete("/{id}/items/{lid}", h.RemoveLine)
		r.Post("/{id}/checkout", h.Checkout)
	})
}

// --- Request types ---

type createCartRequest struct {
	InstitutionID string `json:"institution_id"`
	OrderType     string `json:"order_type"`
}

type updateCartRequest struct {
	OrderType       *string `json:"order_type"`
	TableNumber     *string `json:"table_number"`
	DeliveryAddress *string `json:"delivery_address"`
}

type addItemRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	cart.Selection
}

type updateLineRequest struct {
	Quantity     *int    `json:"quantity"`
	Instructions *string `json:"instructions"`
}

type checkoutRequest struct {
	BranchID        string `json:"branch_id"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerEmail   string `json:"customer_email"`
	CustomerAddress string `json:"customer_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

// --- Handlers ---

// Create handles POST /carts.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	institutionID, err := uuid.Parse(req.InstitutionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "institution_id is required")
		return
	}

	id, err := h.carts.Create(institutionID)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	snap, err := h.mutate(id, func(c *cart.Cart) error {
		if req.OrderType != "" {
			return c.SetOrderType(req.OrderType)
		}
		return nil
	})
	if err != nil {
		h.carts.Delete(id)
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// Get handles GET /carts/{id}.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	snap, err := h.mutate(id, nil)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Update handles PATCH /carts/{id}.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req updateCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.mutate(id, func(c *cart.Cart) error {
		if req.OrderType != nil {
			if err := c.SetOrderType(*req.OrderType); err != nil {
				return err
			}
		}
		if req.TableNumber != nil {
			c.TableNumber = *req.TableNumber
		}
		if req.DeliveryAddress != nil {
			c.DeliveryAddress = *req.DeliveryAddress
		}
		return nil
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Discard handles DELETE /carts/{id}.
func (h *CartHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	if !h.carts.Delete(id) {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /carts/{id}/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.mutate(id, nil)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	item, err := h.items.GetItem(r.Context(), current.InstitutionID, req.MenuItemID)
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	snap, err := h.mutate(id, func(c *cart.Cart) error {
		_, err := c.AddItem(item, req.Selection)
		return err
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdateLine handles PATCH /carts/{id}/items/{lid}. A quantity below 1
// removes the line.
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	lineID, ok := urlUUID(w, r, "lid", "line ID")
	if !ok {
		return
	}
	var req updateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.mutate(id, func(c *cart.Cart) error {
		if req.Instructions != nil {
			if err := c.SetInstructions(lineID, *req.Instructions); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			return c.SetQuantity(lineID, *req.Quantity)
		}
		return nil
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RemoveLine handles DELETE /carts/{id}/items/{lid}.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	lineID, ok := urlUUID(w, r, "lid", "line ID")
	if !ok {
		return
	}

	snap, err := h.mutate(id, func(c *cart.Cart) error {
		if !c.RemoveItem(lineID) {
			return cart.ErrLineNotFound
		}
		return nil
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Checkout handles POST /carts/{id}/checkout. The cart is reserved while
// the order is submitted, discarded once the order exists and released
// again if submission fails.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "cart ID")
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var branchID uuid.UUID
	if req.BranchID != "" {
		var err error
		if branchID, err = uuid.Parse(req.BranchID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch_id")
			return
		}
	}

	var submit service.SubmitOrderRequest
	err := h.carts.BeginCheckout(id, func(c *cart.Cart) error {
		if err := c.Validate(); err != nil {
			return err
		}
		submit = service.SubmitOrderRequest{
			InstitutionID:   c.InstitutionID,
			BranchID:        branchID,
			OrderType:       c.OrderType,
			TableNumber:     c.TableNumber,
			DeliveryAddress: c.DeliveryAddress,
			DeliveryFee:     c.Totals(h.policy).DeliveryFee,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			CustomerEmail:   req.CustomerEmail,
			CustomerAddress: req.CustomerAddress,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
			Items:           service.LinesFromCart(c.Lines()),
		}
		return nil
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	result, err := h.submitter.Submit(r.Context(), submit)
	if err != nil {
		h.carts.Release(id)
		switch {
		case service.IsValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrItemsNotCreated):
			writeError(w, http.StatusInternalServerError, "Failed to create order items")
		default:
			h.log.Error("checkout cart", zap.String("cart_id", id.String()), zap.Error(err))
			writeFailure(w, "Failed to create order", err)
		}
		return
	}

	h.carts.Delete(id)
	writeJSON(w, http.StatusCreated, createOrderResponse{Success: true, Order: result})
}

// mutate applies fn (if any) under the registry lock and snapshots the result.
func (h *CartHandler) mutate(id uuid.UUID, fn func(*cart.Cart) error) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := h.carts.Update(id, func(c *cart.Cart) error {
		if fn != nil {
			if err := fn(c); err != nil {
				return err
			}
		}
		snap = c.Snapshot(h.policy)
		return nil
	})
	return snap, err
}

func (h *CartHandler) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		writeError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrCheckingOut):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrTooManyCarts):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, "cart line not found")
	case errors.Is(err, menu.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "menu item not found")
	case errors.Is(err, cart.ErrItemUnavailable),
		errors.Is(err, cart.ErrUnknownOption),
		errors.Is(err, cart.ErrVariationRequired),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrDeliveryAddressRequired),
		errors.Is(err, cart.ErrInvalidOrderType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("cart operation", zap.Error(err))
		writeFailure(w, "internal server error", err)
	}
}
