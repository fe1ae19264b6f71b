// Package menu serves the read-only catalog the order pipeline prices
// against. Store rows are mapped into strict domain types here and nowhere
// else.
package menu

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/database"
)

type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Icon         string    `json:"icon,omitempty"`
	DisplayOrder int32     `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// VariationOption is one choice in a group. PriceModifier is relative to
// the item's base price and may be negative.
type VariationOption struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

type Variation struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Required bool              `json:"required"`
	Options  []VariationOption `json:"options"`
}

type AddOn struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

type Item struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	ImageURL        string          `json:"image_url,omitempty"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	IsAvailable     bool            `json:"is_available"`
	IsFeatured      bool            `json:"is_featured"`
	PreparationTime *int32          `json:"preparation_time,omitempty"`
	Variations      []Variation     `json:"variations,omitempty"`
	AddOns          []AddOn         `json:"add_ons,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Option looks up a variation option by group and option id.
func (it Item) Option(variationID string, optionID uuid.UUID) (Variation, VariationOption, bool) {
	for _, v := range it.Variations {
		if v.ID != variationID {
			continue
		}
		for _, o := range v.Options {
			if o.ID == optionID {
				return v, o, true
			}
		}
	}
	return Variation{}, VariationOption{}, false
}

// AddOn looks up an add-on by id.
func (it Item) AddOn(id uuid.UUID) (AddOn, bool) {
	for _, a := range it.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOn{}, false
}

type Menu struct {
	Categories []Category `json:"categories"`
	Items      []Item     `json:"items"`
}

// Item returns the menu item with the given id.
func (m *Menu) Item(id uuid.UUID) (Item, bool) {
	for _, it := range m.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// --- Row mapping ---
//
// Defaults for missing columns:
//   category slug      derived from the name (lowercase, spaces to dashes)
//   sort_order         0
//   item price         0
//   is_available       true
//   is_featured        false
//   variant price      item base price (delta 0)
//   add-on price       0
//   add-on available   true; unavailable add-ons are dropped

// MapCategory converts a category row into a Category.
func MapCategory(row database.MenuCategory) Category {
	c := Category{
		ID:        row.ID,
		Name:      row.Name,
		Slug:      slugify(row.Name),
		CreatedAt: row.CreatedAt,
	}
	if row.Slug.Valid && row.Slug.String != "" {
		c.Slug = row.Slug.String
	}
	if row.Icon.Valid {
		c.Icon = row.Icon.String
	}
	if row.SortOrder.Valid {
		c.DisplayOrder = row.SortOrder.Int32
	}
	return c
}

// MapItem converts an item row plus its variant and add-on rows into an Item.
// Variants become a single required "Variant" group. Rows are expected in
// sort order.
func MapItem(row database.MenuItem, variants []database.MenuItemVariant, addons []database.MenuItemAddon) Item {
	base := database.NumericOr(row.Price, decimal.Zero)
	it := Item{
		ID:          row.ID,
		Name:        row.Name,
		Price:       base,
		IsAvailable: boolOr(row.IsAvailable, true),
		IsFeatured:  boolOr(row.IsFeatured, false),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Description.Valid {
		it.Description = row.Description.String
	}
	if row.ImageUrl.Valid {
		it.ImageURL = row.ImageUrl.String
	}
	if row.CategoryID.Valid {
		id := uuid.UUID(row.CategoryID.Bytes)
		it.CategoryID = &id
	}
	if row.PreparationTime.Valid {
		pt := row.PreparationTime.Int32
		it.PreparationTime = &pt
	}

	if len(variants) > 0 {
		group := Variation{
			ID:       "var-" + row.ID.String(),
			Name:     "Variant",
			Required: true,
		}
		for _, v := range variants {
			group.Options = append(group.Options, VariationOption{
				ID:            v.ID,
				Name:          v.Name,
				PriceModifier: database.NumericOr(v.Price, base).Sub(base),
			})
		}
		it.Variations = []Variation{group}
	}

	for _, a := range addons {
		if !boolOr(a.IsAvailable, true) {
			continue
		}
		it.AddOns = append(it.AddOns, AddOn{
			ID:          a.ID,
			Name:        a.Name,
			Price:       database.NumericOr(a.Price, decimal.Zero),
			IsAvailable: true,
		})
	}
	return it
}

func slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func boolOr(b pgtype.Bool, fallback bool) bool {
	if !b.Valid {
		return fallback
	}
	return b.Bool
}
