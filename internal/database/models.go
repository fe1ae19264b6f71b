package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID            uuid.UUID   `json:"id"`
	InstitutionID uuid.UUID   `json:"institution_id"`
	Name          string      `json:"name"`
	Address       pgtype.Text `json:"address"`
	CreatedAt     time.Time   `json:"created_at"`
}

type InstitutionCode struct {
	ID            uuid.UUID   `json:"id"`
	InstitutionID uuid.UUID   `json:"institution_id"`
	BranchID      pgtype.UUID `json:"branch_id"`
	CodePrefix    string      `json:"code_prefix"`
	CodeHash      string      `json:"code_hash"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

type MenuCategory struct {
	ID            uuid.UUID   `json:"id"`
	InstitutionID uuid.UUID   `json:"institution_id"`
	Name          string      `json:"name"`
	Slug          pgtype.Text `json:"slug"`
	Icon          pgtype.Text `json:"icon"`
	SortOrder     pgtype.Int4 `json:"sort_order"`
	IsVisible     bool        `json:"is_visible"`
	CreatedAt     time.Time   `json:"created_at"`
}

type MenuItem struct {
	ID              uuid.UUID      `json:"id"`
	InstitutionID   uuid.UUID      `json:"institution_id"`
	CategoryID      pgtype.UUID    `json:"category_id"`
	Name            string         `json:"name"`
	Description     pgtype.Text    `json:"description"`
	Price           pgtype.Numeric `json:"price"`
	ImageUrl        pgtype.Text    `json:"image_url"`
	IsAvailable     pgtype.Bool    `json:"is_available"`
	IsFeatured      pgtype.Bool    `json:"is_featured"`
	PreparationTime pgtype.Int4    `json:"preparation_time"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type MenuItemVariant struct {
	ID         uuid.UUID      `json:"id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	SortOrder  pgtype.Int4    `json:"sort_order"`
	IsDefault  bool           `json:"is_default"`
}

type MenuItemAddon struct {
	ID          uuid.UUID      `json:"id"`
	MenuItemID  uuid.UUID      `json:"menu_item_id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	SortOrder   pgtype.Int4    `json:"sort_order"`
	IsAvailable pgtype.Bool    `json:"is_available"`
}

type Customer struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Email     pgtype.Text `json:"email"`
	Address   pgtype.Text `json:"address"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     string         `json:"order_number"`
	InstitutionID   uuid.UUID      `json:"institution_id"`
	BranchID        uuid.UUID      `json:"branch_id"`
	CustomerID      pgtype.UUID    `json:"customer_id"`
	CustomerName    string         `json:"customer_name"`
	CustomerPhone   string         `json:"customer_phone"`
	CustomerEmail   pgtype.Text    `json:"customer_email"`
	DeliveryAddress pgtype.Text    `json:"delivery_address"`
	TableNumber     pgtype.Text    `json:"table_number"`
	DeliveryType    string         `json:"delivery_type"`
	Channel         string         `json:"channel"`
	Subtotal        pgtype.Numeric `json:"subtotal"`
	TaxAmount       pgtype.Numeric `json:"tax_amount"`
	DeliveryFee     pgtype.Numeric `json:"delivery_fee"`
	TotalAmount     pgtype.Numeric `json:"total_amount"`
	Status          string         `json:"status"`
	PaymentMethod   pgtype.Text    `json:"payment_method"`
	PaymentStatus   string         `json:"payment_status"`
	Notes           pgtype.Text    `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     uuid.UUID      `json:"order_id"`
	MenuItemID  pgtype.UUID    `json:"menu_item_id"`
	ItemName    string         `json:"item_name"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	TotalPrice  pgtype.Numeric `json:"total_price"`
	VariantName pgtype.Text    `json:"variant_name"`
	Notes       pgtype.Text    `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
}

type OrderItemAddon struct {
	ID          uuid.UUID      `json:"id"`
	OrderItemID uuid.UUID      `json:"order_item_id"`
	AddonName   string         `json:"addon_name"`
	AddonPrice  pgtype.Numeric `json:"addon_price"`
	Quantity    int32          `json:"quantity"`
}

type OrderTimeline struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	EventType        string    `json:"event_type"`
	EventDescription string    `json:"event_description"`
	CreatedAt        time.Time `json:"created_at"`
}
