package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, institution_id, branch_id, customer_id, customer_name,
	customer_phone, customer_email, delivery_address, table_number, delivery_type, channel,
	subtotal, tax_amount, delivery_fee, total_amount, status, payment_method, payment_status,
	notes, created_at, updated_at`

func scanOrder(row scanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.InstitutionID,
		&i.BranchID,
		&i.CustomerID,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.CustomerEmail,
		&i.DeliveryAddress,
		&i.TableNumber,
		&i.DeliveryType,
		&i.Channel,
		&i.Subtotal,
		&i.TaxAmount,
		&i.DeliveryFee,
		&i.TotalAmount,
		&i.Status,
		&i.PaymentMethod,
		&i.PaymentStatus,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const orderNumberExists = `-- name: OrderNumberExists :one
SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)
`

func (q *Queries) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	row := q.db.QueryRow(ctx, orderNumberExists, orderNumber)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, institution_id, branch_id, customer_id, customer_name, customer_phone,
    customer_email, delivery_address, table_number, delivery_type, channel,
    subtotal, tax_amount, delivery_fee, total_amount, status, payment_method, payment_status, notes
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
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
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.InstitutionID,
		arg.BranchID,
		arg.CustomerID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.DeliveryAddress,
		arg.TableNumber,
		arg.DeliveryType,
		arg.Channel,
		arg.Subtotal,
		arg.TaxAmount,
		arg.DeliveryFee,
		arg.TotalAmount,
		arg.Status,
		arg.PaymentMethod,
		arg.PaymentStatus,
		arg.Notes,
	)
	return scanOrder(row)
}

const deleteOrder = `-- name: DeleteOrder :exec
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getInstitutionOrder = `-- name: GetInstitutionOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND institution_id = $2
`

type GetInstitutionOrderParams struct {
	ID            uuid.UUID `json:"id"`
	InstitutionID uuid.UUID `json:"institution_id"`
}

func (q *Queries) GetInstitutionOrder(ctx context.Context, arg GetInstitutionOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getInstitutionOrder, arg.ID, arg.InstitutionID))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE institution_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	InstitutionID uuid.UUID          `json:"institution_id"`
	Status        pgtype.Text        `json:"status"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
	Limit         int32              `json:"limit"`
	Offset        int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.InstitutionID,
		arg.Status,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// UpdateOrderStatus is last-write-wins: there is no compare on the previous status.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE orders
SET payment_status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdatePaymentStatusParams struct {
	ID            uuid.UUID `json:"id"`
	PaymentStatus string    `json:"payment_status"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updatePaymentStatus, arg.ID, arg.PaymentStatus))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (
    order_id, menu_item_id, item_name, unit_price, quantity, total_price, variant_name, notes
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING id, order_id, menu_item_id, item_name, unit_price, quantity, total_price, variant_name, notes, created_at
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID      `json:"order_id"`
	MenuItemID  pgtype.UUID    `json:"menu_item_id"`
	ItemName    string         `json:"item_name"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	TotalPrice  pgtype.Numeric `json:"total_price"`
	VariantName pgtype.Text    `json:"variant_name"`
	Notes       pgtype.Text    `json:"notes"`
}

func scanOrderItem(row scanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.ItemName,
		&i.UnitPrice,
		&i.Quantity,
		&i.TotalPrice,
		&i.VariantName,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.ItemName,
		arg.UnitPrice,
		arg.Quantity,
		arg.TotalPrice,
		arg.VariantName,
		arg.Notes,
	)
	return scanOrderItem(row)
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, menu_item_id, item_name, unit_price, quantity, total_price, variant_name, notes, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateOrderItemAddonsParams struct {
	OrderItemID uuid.UUID      `json:"order_item_id"`
	AddonName   string         `json:"addon_name"`
	AddonPrice  pgtype.Numeric `json:"addon_price"`
	Quantity    int32          `json:"quantity"`
}

// CreateOrderItemAddons bulk-inserts add-on rows with COPY. The batch is
// all-or-nothing.
func (q *Queries) CreateOrderItemAddons(ctx context.Context, arg []CreateOrderItemAddonsParams) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"order_item_addons"},
		[]string{"order_item_id", "addon_name", "addon_price", "quantity"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]interface{}, error) {
			return []interface{}{
				arg[i].OrderItemID,
				arg[i].AddonName,
				arg[i].AddonPrice,
				arg[i].Quantity,
			}, nil
		}),
	)
}

const listOrderItemAddonsByOrder = `-- name: ListOrderItemAddonsByOrder :many
SELECT a.id, a.order_item_id, a.addon_name, a.addon_price, a.quantity
FROM order_item_addons a
JOIN order_items oi ON oi.id = a.order_item_id
WHERE oi.order_id = $1
ORDER BY a.order_item_id, a.addon_name
`

func (q *Queries) ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemAddon, error) {
	rows, err := q.db.Query(ctx, listOrderItemAddonsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItemAddon{}
	for rows.Next() {
		var i OrderItemAddon
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.AddonName,
			&i.AddonPrice,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrderTimeline = `-- name: CreateOrderTimeline :one
INSERT INTO order_timeline (order_id, event_type, event_description)
VALUES ($1, $2, $3)
RETURNING id, order_id, event_type, event_description, created_at
`

type CreateOrderTimelineParams struct {
	OrderID          uuid.UUID `json:"order_id"`
	EventType        string    `json:"event_type"`
	EventDescription string    `json:"event_description"`
}

func (q *Queries) CreateOrderTimeline(ctx context.Context, arg CreateOrderTimelineParams) (OrderTimeline, error) {
	row := q.db.QueryRow(ctx, createOrderTimeline, arg.OrderID, arg.EventType, arg.EventDescription)
	var i OrderTimeline
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.EventType,
		&i.EventDescription,
		&i.CreatedAt,
	)
	return i, err
}

const listOrderTimeline = `-- name: ListOrderTimeline :many
SELECT id, order_id, event_type, event_description, created_at
FROM order_timeline
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderTimeline(ctx context.Context, orderID uuid.UUID) ([]OrderTimeline, error) {
	rows, err := q.db.Query(ctx, listOrderTimeline, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderTimeline{}
	for rows.Next() {
		var i OrderTimeline
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.EventType,
			&i.EventDescription,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDailySales = `-- name: GetDailySales :many
SELECT
    date_trunc('day', created_at)::timestamptz AS sale_date,
    COUNT(*)::bigint AS order_count,
    COALESCE(SUM(total_amount), 0)::numeric AS total_revenue,
    COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN total_amount ELSE 0 END), 0)::numeric AS paid_revenue
FROM orders
WHERE institution_id = $1
  AND status <> 'cancelled'
  AND created_at >= $2
  AND created_at < $3
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesParams struct {
	InstitutionID uuid.UUID          `json:"institution_id"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
}

type GetDailySalesRow struct {
	SaleDate     pgtype.Timestamptz `json:"sale_date"`
	OrderCount   int64              `json:"order_count"`
	TotalRevenue pgtype.Numeric     `json:"total_revenue"`
	PaidRevenue  pgtype.Numeric     `json:"paid_revenue"`
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.InstitutionID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailySalesRow{}
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(
			&i.SaleDate,
			&i.OrderCount,
			&i.TotalRevenue,
			&i.PaidRevenue,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, menu_item_id, item_name, unit_price, quantity, total_price, variant_name, notes, created_at
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, created_at, id
`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemAddonsByOrders = `-- name: ListOrderItemAddonsByOrders :many
SELECT a.id, a.order_item_id, a.addon_name, a.addon_price, a.quantity
FROM order_item_addons a
JOIN order_items oi ON oi.id = a.order_item_id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY a.order_item_id, a.addon_name
`

func (q *Queries) ListOrderItemAddonsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItemAddon, error) {
	rows, err := q.db.Query(ctx, listOrderItemAddonsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItemAddon{}
	for rows.Next() {
		var i OrderItemAddon
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.AddonName,
			&i.AddonPrice,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
