package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCustomerByPhone = `-- name: GetCustomerByPhone :one
SELECT id, name, phone, email, address, created_at, updated_at
FROM customers
WHERE phone = $1
`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByPhone, phone)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getInstitutionCustomerByPhone = `-- name: GetInstitutionCustomerByPhone :one
SELECT c.id, c.name, c.phone, c.email, c.address, c.created_at, c.updated_at
FROM customers c
WHERE c.phone = $1
  AND EXISTS (
    SELECT 1 FROM orders o
    WHERE o.customer_id = c.id AND o.institution_id = $2
  )
`

type GetInstitutionCustomerByPhoneParams struct {
	Phone         string    `json:"phone"`
	InstitutionID uuid.UUID `json:"institution_id"`
}

// GetInstitutionCustomerByPhone only finds customers who have ordered from
// the institution.
func (q *Queries) GetInstitutionCustomerByPhone(ctx context.Context, arg GetInstitutionCustomerByPhoneParams) (Customer, error) {
	row := q.db.QueryRow(ctx, getInstitutionCustomerByPhone, arg.Phone, arg.InstitutionID)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (name, phone, email, address)
VALUES ($1, $2, $3, $4)
RETURNING id, name, phone, email, address, created_at, updated_at
`

type CreateCustomerParams struct {
	Name    string      `json:"name"`
	Phone   string      `json:"phone"`
	Email   pgtype.Text `json:"email"`
	Address pgtype.Text `json:"address"`
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Phone, arg.Email, arg.Address)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateCustomerContact = `-- name: UpdateCustomerContact :exec
UPDATE customers
SET name = COALESCE(NULLIF($2, ''), name),
    email = COALESCE($3, email),
    address = COALESCE($4, address),
    updated_at = now()
WHERE phone = $1
`

type UpdateCustomerContactParams struct {
	Phone   string      `json:"phone"`
	Name    string      `json:"name"`
	Email   pgtype.Text `json:"email"`
	Address pgtype.Text `json:"address"`
}

// UpdateCustomerContact only overwrites the fields that were supplied.
func (q *Queries) UpdateCustomerContact(ctx context.Context, arg UpdateCustomerContactParams) error {
	_, err := q.db.Exec(ctx, updateCustomerContact, arg.Phone, arg.Name, arg.Email, arg.Address)
	return err
}
