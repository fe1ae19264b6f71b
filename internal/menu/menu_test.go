package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chopbox/api/internal/database"
)

type mockStore struct {
	categories []database.MenuCategory
	items      []database.MenuItem
	variants   []database.MenuItemVariant
	addons     []database.MenuItemAddon
	err        error
	calls      int
}

func (m *mockStore) ListVisibleMenuCategories(ctx context.Context, institutionID uuid.UUID) ([]database.MenuCategory, error) {
	m.calls++
	return m.categories, m.err
}

func (m *mockStore) ListAvailableMenuItems(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItem, error) {
	return m.items, nil
}

func (m *mockStore) ListMenuItemVariantsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItemVariant, error) {
	return m.variants, nil
}

func (m *mockStore) ListMenuItemAddonsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItemAddon, error) {
	return m.addons, nil
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}

func TestMapCategory_Defaults(t *testing.T) {
	c := MapCategory(database.MenuCategory{ID: uuid.New(), Name: "Rice  Dishes"})
	assert.Equal(t, "rice-dishes", c.Slug)
	assert.Equal(t, int32(0), c.DisplayOrder)
	assert.Empty(t, c.Icon)

	c = MapCategory(database.MenuCategory{
		Name:      "Drinks",
		Slug:      pgtype.Text{String: "cold-drinks", Valid: true},
		SortOrder: pgtype.Int4{Int32: 3, Valid: true},
	})
	assert.Equal(t, "cold-drinks", c.Slug)
	assert.Equal(t, int32(3), c.DisplayOrder)
}

func TestMapItem_Defaults(t *testing.T) {
	it := MapItem(database.MenuItem{ID: uuid.New(), Name: "Kelewele"}, nil, nil)
	assert.True(t, it.Price.IsZero())
	assert.True(t, it.IsAvailable)
	assert.False(t, it.IsFeatured)
	assert.Nil(t, it.CategoryID)
	assert.Nil(t, it.PreparationTime)
	assert.Empty(t, it.Variations)
	assert.Empty(t, it.AddOns)
}

func TestMapItem_VariantsBecomeRequiredGroup(t *testing.T) {
	itemID := uuid.New()
	small, large, plain := uuid.New(), uuid.New(), uuid.New()
	it := MapItem(
		database.MenuItem{ID: itemID, Name: "Jollof", Price: numeric("12.90")},
		[]database.MenuItemVariant{
			{ID: small, MenuItemID: itemID, Name: "Small", Price: numeric("10.90")},
			{ID: large, MenuItemID: itemID, Name: "Large", Price: numeric("18.90")},
			{ID: plain, MenuItemID: itemID, Name: "Regular"},
		},
		nil,
	)

	require.Len(t, it.Variations, 1)
	group := it.Variations[0]
	assert.Equal(t, "Variant", group.Name)
	assert.True(t, group.Required)
	assert.Equal(t, "var-"+itemID.String(), group.ID)
	require.Len(t, group.Options, 3)
	assert.True(t, group.Options[0].PriceModifier.Equal(decimal.RequireFromString("-2.00")))
	assert.True(t, group.Options[1].PriceModifier.Equal(decimal.RequireFromString("6.00")))
	assert.True(t, group.Options[2].PriceModifier.IsZero())

	_, opt, ok := it.Option(group.ID, large)
	require.True(t, ok)
	assert.Equal(t, "Large", opt.Name)
	_, _, ok = it.Option("other", large)
	assert.False(t, ok)
}

func TestMapItem_DropsUnavailableAddOns(t *testing.T) {
	itemID := uuid.New()
	egg, fish := uuid.New(), uuid.New()
	it := MapItem(
		database.MenuItem{ID: itemID, Name: "Waakye", Price: numeric("15.00")},
		nil,
		[]database.MenuItemAddon{
			{ID: egg, MenuItemID: itemID, Name: "Egg", Price: numeric("2.50")},
			{ID: fish, MenuItemID: itemID, Name: "Fish", Price: numeric("9.50"), IsAvailable: pgtype.Bool{Bool: false, Valid: true}},
		},
	)

	require.Len(t, it.AddOns, 1)
	assert.Equal(t, egg, it.AddOns[0].ID)
	_, ok := it.AddOn(fish)
	assert.False(t, ok)
}

func TestService_GetMenu_CachesByInstitution(t *testing.T) {
	institutionID := uuid.New()
	itemID := uuid.New()
	store := &mockStore{
		categories: []database.MenuCategory{{ID: uuid.New(), Name: "Mains"}},
		items:      []database.MenuItem{{ID: itemID, Name: "Jollof", Price: numeric("12.90")}},
	}
	svc := NewService(store, NewMemoryCache(), time.Minute, nil)

	first, err := svc.GetMenu(context.Background(), institutionID)
	require.NoError(t, err)
	second, err := svc.GetMenu(context.Background(), institutionID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	require.Len(t, second.Items, 1)
	assert.True(t, second.Items[0].Price.Equal(first.Items[0].Price))

	_, err = svc.GetMenu(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestService_GetItem(t *testing.T) {
	itemID := uuid.New()
	store := &mockStore{items: []database.MenuItem{{ID: itemID, Name: "Jollof"}}}
	svc := NewService(store, nil, time.Minute, nil)

	it, err := svc.GetItem(context.Background(), uuid.New(), itemID)
	require.NoError(t, err)
	assert.Equal(t, "Jollof", it.Name)

	_, err = svc.GetItem(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestService_GetMenu_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	svc := NewService(store, NewMemoryCache(), time.Minute, nil)

	_, err := svc.GetMenu(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 60*time.Second))
	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(60 * time.Second)
	_, ok, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
