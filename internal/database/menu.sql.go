package database

import (
	"context"

	"github.com/google/uuid"
)

const listVisibleMenuCategories = `-- name: ListVisibleMenuCategories :many
SELECT id, institution_id, name, slug, icon, sort_order, is_visible, created_at
FROM menu_categories
WHERE institution_id = $1 AND is_visible = TRUE
ORDER BY sort_order NULLS LAST, name
`

func (q *Queries) ListVisibleMenuCategories(ctx context.Context, institutionID uuid.UUID) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listVisibleMenuCategories, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuCategory{}
	for rows.Next() {
		var i MenuCategory
		if err := rows.Scan(
			&i.ID,
			&i.InstitutionID,
			&i.Name,
			&i.Slug,
			&i.Icon,
			&i.SortOrder,
			&i.IsVisible,
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

const listAvailableMenuItems = `-- name: ListAvailableMenuItems :many
SELECT id, institution_id, category_id, name, description, price, image_url,
       is_available, is_featured, preparation_time, created_at, updated_at
FROM menu_items
WHERE institution_id = $1 AND COALESCE(is_available, TRUE)
ORDER BY created_at
`

func (q *Queries) ListAvailableMenuItems(ctx context.Context, institutionID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		var i MenuItem
		if err := rows.Scan(
			&i.ID,
			&i.InstitutionID,
			&i.CategoryID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.ImageUrl,
			&i.IsAvailable,
			&i.IsFeatured,
			&i.PreparationTime,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listMenuItemVariantsByInstitution = `-- name: ListMenuItemVariantsByInstitution :many
SELECT v.id, v.menu_item_id, v.name, v.price, v.sort_order, v.is_default
FROM menu_item_variants v
JOIN menu_items mi ON mi.id = v.menu_item_id
WHERE mi.institution_id = $1
ORDER BY v.menu_item_id, v.sort_order NULLS FIRST
`

func (q *Queries) ListMenuItemVariantsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]MenuItemVariant, error) {
	rows, err := q.db.Query(ctx, listMenuItemVariantsByInstitution, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItemVariant{}
	for rows.Next() {
		var i MenuItemVariant
		if err := rows.Scan(
			&i.ID,
			&i.MenuItemID,
			&i.Name,
			&i.Price,
			&i.SortOrder,
			&i.IsDefault,
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

const listMenuItemAddonsByInstitution = `-- name: ListMenuItemAddonsByInstitution :many
SELECT a.id, a.menu_item_id, a.name, a.price, a.sort_order, a.is_available
FROM menu_item_addons a
JOIN menu_items mi ON mi.id = a.menu_item_id
WHERE mi.institution_id = $1
ORDER BY a.menu_item_id, a.sort_order NULLS FIRST
`

func (q *Queries) ListMenuItemAddonsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]MenuItemAddon, error) {
	rows, err := q.db.Query(ctx, listMenuItemAddonsByInstitution, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItemAddon{}
	for rows.Next() {
		var i MenuItemAddon
		if err := rows.Scan(
			&i.ID,
			&i.MenuItemID,
			&i.Name,
			&i.Price,
			&i.SortOrder,
			&i.IsAvailable,
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
