package database

import (
	"context"

	"github.com/google/uuid"
)

const getFirstBranch = `-- name: GetFirstBranch :one
SELECT id, institution_id, name, address, created_at
FROM branches
WHERE institution_id = $1
ORDER BY created_at
LIMIT 1
`

func (q *Queries) GetFirstBranch(ctx context.Context, institutionID uuid.UUID) (Branch, error) {
	row := q.db.QueryRow(ctx, getFirstBranch, institutionID)
	var i Branch
	err := row.Scan(
		&i.ID,
		&i.InstitutionID,
		&i.Name,
		&i.Address,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveInstitutionCode = `-- name: GetActiveInstitutionCode :one
SELECT id, institution_id, branch_id, code_prefix, code_hash, is_active, created_at
FROM institution_codes
WHERE code_prefix = $1 AND is_active = TRUE
`

func (q *Queries) GetActiveInstitutionCode(ctx context.Context, codePrefix string) (InstitutionCode, error) {
	row := q.db.QueryRow(ctx, getActiveInstitutionCode, codePrefix)
	var i InstitutionCode
	err := row.Scan(
		&i.ID,
		&i.InstitutionID,
		&i.BranchID,
		&i.CodePrefix,
		&i.CodeHash,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}
