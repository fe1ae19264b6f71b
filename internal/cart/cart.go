// Package cart holds the in-progress order of a single POS session. Nothing
// here performs I/O; prices come from menu items passed in by the caller.
package cart

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/menu"
)

var (
	ErrItemUnavailable         = errors.New("menu item is not available")
	ErrUnknownOption           = errors.New("selection does not belong to menu item")
	ErrVariationRequired       = errors.New("required variation not selected")
	ErrLineNotFound            = errors.New("cart line not found")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrDeliveryAddressRequired = errors.New("delivery address is required for delivery orders")
	ErrInvalidOrderType        = errors.New("invalid order type")
)

// Selection is what the cashier picked for a menu item: one option id per
// variation group id, plus add-on ids.
type Selection struct {
	Variations map[string]uuid.UUID `json:"variations"`
	AddOns     []uuid.UUID          `json:"add_ons"`
}

type SelectedOption struct {
	VariationID   string          `json:"variation_id"`
	VariationName string          `json:"variation_name"`
	OptionID      uuid.UUID       `json:"option_id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

type SelectedAddOn struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Line is one cart row. UnitPrice is resolved when the line is created and
// does not follow later menu changes.
type Line struct {
	ID           uuid.UUID        `json:"id"`
	MenuItemID   uuid.UUID        `json:"menu_item_id"`
	Name         string           `json:"name"`
	BasePrice    decimal.Decimal  `json:"base_price"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Quantity     int              `json:"quantity"`
	Variations   []SelectedOption `json:"variations,omitempty"`
	AddOns       []SelectedAddOn  `json:"add_ons,omitempty"`
	Instructions string           `json:"instructions,omitempty"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
}

// VariantLabel is the name of the first selected option, or "".
func (l Line) VariantLabel() string {
	if len(l.Variations) == 0 {
		return ""
	}
	return l.Variations[0].Name
}

func (l *Line) recompute() {
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// key identifies structurally identical lines. Variations and add-ons are
// kept sorted, so selection order does not matter.
func (l Line) key() string {
	var b strings.Builder
	b.WriteString(l.MenuItemID.String())
	for _, v := range l.Variations {
		b.WriteString("|v:")
		b.WriteString(v.VariationID)
		b.WriteByte('=')
		b.WriteString(v.OptionID.String())
	}
	for _, a := range l.AddOns {
		b.WriteString("|a:")
		b.WriteString(a.ID.String())
	}
	return b.String()
}

// Cart is owned by one session and is not safe for concurrent use.
type Cart struct {
	ID              uuid.UUID
	InstitutionID   uuid.UUID
	OrderType       string
	TableNumber     string
	DeliveryAddress string

	lines []Line
	newID func() uuid.UUID
}

// New returns an empty dine-in cart.
func New() *Cart {
	return &Cart{
		ID:        uuid.New(),
		OrderType: enum.OrderTypeDineIn,
		newID:     uuid.New,
	}
}

// SetOrderType switches between dine-in, takeaway and delivery.
func (c *Cart) SetOrderType(orderType string) error {
	switch orderType {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		c.OrderType = orderType
		return nil
	}
	return ErrInvalidOrderType
}

// AddItem prices the selection against item and either bumps the quantity
// of an identical line or appends a new line with quantity 1.
func (c *Cart) AddItem(item menu.Item, sel Selection) (Line, error) {
	if !item.IsAvailable {
		return Line{}, ErrItemUnavailable
	}

	line := Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		BasePrice:  item.Price,
		Quantity:   1,
	}

	for _, v := range item.Variations {
		if _, ok := sel.Variations[v.ID]; !ok && v.Required && len(v.Options) > 0 {
			return Line{}, ErrVariationRequired
		}
	}
	for groupID, optionID := range sel.Variations {
		group, opt, ok := item.Option(groupID, optionID)
		if !ok {
			return Line{}, ErrUnknownOption
		}
		line.Variations = append(line.Variations, SelectedOption{
			VariationID:   group.ID,
			VariationName: group.Name,
			OptionID:      opt.ID,
			Name:          opt.Name,
			PriceModifier: opt.PriceModifier,
		})
	}
	sort.Slice(line.Variations, func(i, j int) bool {
		return line.Variations[i].VariationID < line.Variations[j].VariationID
	})

	seen := make(map[uuid.UUID]bool, len(sel.AddOns))
	for _, id := range sel.AddOns {
		if seen[id] {
			continue
		}
		seen[id] = true
		a, ok := item.AddOn(id)
		if !ok || !a.IsAvailable {
			return Line{}, ErrUnknownOption
		}
		line.AddOns = append(line.AddOns, SelectedAddOn{ID: a.ID, Name: a.Name, Price: a.Price})
	}
	sort.Slice(line.AddOns, func(i, j int) bool {
		return line.AddOns[i].ID.String() < line.AddOns[j].ID.String()
	})

	line.UnitPrice = unitPrice(line)

	key := line.key()
	for i := range c.lines {
		if c.lines[i].key() == key {
			c.lines[i].Quantity++
			c.lines[i].recompute()
			return c.lines[i], nil
		}
	}

	line.ID = c.newID()
	line.recompute()
	c.lines = append(c.lines, line)
	return line, nil
}

func unitPrice(l Line) decimal.Decimal {
	p := l.BasePrice
	for _, v := range l.Variations {
		p = p.Add(v.PriceModifier)
	}
	for _, a := range l.AddOns {
		p = p.Add(a.Price)
	}
	return p
}

// SetQuantity updates a line's quantity. A quantity below 1 removes the line.
func (c *Cart) SetQuantity(lineID uuid.UUID, qty int) error {
	i := c.index(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty < 1 {
		c.RemoveItem(lineID)
		return nil
	}
	c.lines[i].Quantity = qty
	c.lines[i].recompute()
	return nil
}

// RemoveItem deletes a line and reports whether it was present.
func (c *Cart) RemoveItem(lineID uuid.UUID) bool {
	i := c.index(lineID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) SetInstructions(lineID uuid.UUID, text string) error {
	i := c.index(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines[i].Instructions = text
	return nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

// Clear empties the cart but keeps its order context.
func (c *Cart) Clear() { c.lines = nil }

// Validate checks the cart can be submitted.
func (c *Cart) Validate() error {
	if len(c.lines) == 0 {
		return ErrEmptyCart
	}
	if c.OrderType == enum.OrderTypeDelivery && strings.TrimSpace(c.DeliveryAddress) == "" {
		return ErrDeliveryAddressRequired
	}
	return nil
}

func (c *Cart) index(lineID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
