package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
)

// OrderView is an order as the POS and kitchen screens see it: UI
// vocabulary for status and order type, items with their add-ons inline.
type OrderView struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	InstitutionID   uuid.UUID       `json:"institution_id"`
	BranchID        uuid.UUID       `json:"branch_id"`
	CustomerID      *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	OrderType       string          `json:"order_type"`
	TableNumber     string          `json:"table_number,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Channel         string          `json:"channel"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	PaymentStatus   string          `json:"payment_status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	Notes           string          `json:"notes,omitempty"`
	Items           []ItemView      `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	MenuItemID  *uuid.UUID      `json:"menu_item_id,omitempty"`
	Name        string          `json:"name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	VariantName string          `json:"variant_name,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	AddOns      []AddOnView     `json:"add_ons,omitempty"`
}

type AddOnView struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

// uiStatus maps a stored status to the UI vocabulary, passing unknown
// values through unchanged.
func uiStatus(db string) string {
	if s, ok := enum.ToUIStatus(db); ok {
		return s
	}
	return db
}

// NewOrderView assembles the view from an order row and its item rows.
func NewOrderView(o database.Order, items []database.OrderItem, addons []database.OrderItemAddon) OrderView {
	v := OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		InstitutionID:   o.InstitutionID,
		BranchID:        o.BranchID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail.String,
		OrderType:       enum.ToUIOrderType(o.DeliveryType),
		TableNumber:     o.TableNumber.String,
		DeliveryAddress: o.DeliveryAddress.String,
		Channel:         o.Channel,
		Status:          uiStatus(o.Status),
		PaymentMethod:   o.PaymentMethod.String,
		PaymentStatus:   o.PaymentStatus,
		Subtotal:        database.NumericToDecimal(o.Subtotal),
		TaxAmount:       database.NumericToDecimal(o.TaxAmount),
		DeliveryFee:     database.NumericToDecimal(o.DeliveryFee),
		Total:           database.NumericToDecimal(o.TotalAmount),
		Notes:           o.Notes.String,
		Items:           make([]ItemView, 0, len(items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.CustomerID.Valid {
		id := uuid.UUID(o.CustomerID.Bytes)
		v.CustomerID = &id
	}

	byItem := make(map[uuid.UUID][]AddOnView)
	for _, a := range addons {
		byItem[a.OrderItemID] = append(byItem[a.OrderItemID], AddOnView{
			Name:     a.AddonName,
			Price:    database.NumericToDecimal(a.AddonPrice),
			Quantity: a.Quantity,
		})
	}

	for _, it := range items {
		iv := ItemView{
			ID:          it.ID,
			Name:        it.ItemName,
			Quantity:    it.Quantity,
			UnitPrice:   database.NumericToDecimal(it.UnitPrice),
			Total:       database.NumericToDecimal(it.TotalPrice),
			VariantName: it.VariantName.String,
			Notes:       it.Notes.String,
			AddOns:      byItem[it.ID],
		}
		if it.MenuItemID.Valid {
			id := uuid.UUID(it.MenuItemID.Bytes)
			iv.MenuItemID = &id
		}
		v.Items = append(v.Items, iv)
	}
	return v
}
