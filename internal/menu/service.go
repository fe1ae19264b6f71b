package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/logger"
)

var ErrItemNotFound = errors.New("menu item not found")

// Store defines the DB methods needed to assemble a menu.
// Satisfied by *database.Queries.
type Store interface {
	ListVisibleMenuCategories(ctx context.Context, institutionID uuid.UUID) ([]database.MenuCategory, error)
	ListAvailableMenuItems(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItem, error)
	ListMenuItemVariantsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItemVariant, error)
	ListMenuItemAddonsByInstitution(ctx context.Context, institutionID uuid.UUID) ([]database.MenuItemAddon, error)
}

// Service reads menus through a response cache.
type Service struct {
	store Store
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewService creates a Service. A nil cache disables caching.
func NewService(store Store, cache Cache, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, log: logger.OrNop(log)}
}

// CacheKey is the cache key for a menu request; one entry per distinct
// query string.
func CacheKey(institutionID uuid.UUID) string {
	q := url.Values{"institution_id": {institutionID.String()}}
	return "menu:" + q.Encode()
}

// GetMenu returns the visible categories and available items of an institution.
func (s *Service) GetMenu(ctx context.Context, institutionID uuid.UUID) (*Menu, error) {
	key := CacheKey(institutionID)
	if m, ok := s.fromCache(ctx, key); ok {
		return m, nil
	}

	m, err := s.load(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Warn("cache menu", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return m, nil
}

// GetItem returns one available item from the institution's menu.
func (s *Service) GetItem(ctx context.Context, institutionID, itemID uuid.UUID) (Item, error) {
	m, err := s.GetMenu(ctx, institutionID)
	if err != nil {
		return Item{}, err
	}
	it, ok := m.Item(itemID)
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*Menu, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("read menu cache", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var m Menu
	if err := json.Unmarshal(data, &m); err != nil {
		s.log.Warn("decode cached menu", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &m, true
}

func (s *Service) load(ctx context.Context, institutionID uuid.UUID) (*Menu, error) {
	cats, err := s.store.ListVisibleMenuCategories(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list menu categories: %w", err)
	}
	rows, err := s.store.ListAvailableMenuItems(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	variants, err := s.store.ListMenuItemVariantsByInstitution(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list menu item variants: %w", err)
	}
	addons, err := s.store.ListMenuItemAddonsByInstitution(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list menu item addons: %w", err)
	}

	variantsByItem := make(map[uuid.UUID][]database.MenuItemVariant)
	for _, v := range variants {
		variantsByItem[v.MenuItemID] = append(variantsByItem[v.MenuItemID], v)
	}
	addonsByItem := make(map[uuid.UUID][]database.MenuItemAddon)
	for _, a := range addons {
		addonsByItem[a.MenuItemID] = append(addonsByItem[a.MenuItemID], a)
	}

	m := &Menu{
		Categories: make([]Category, len(cats)),
		Items:      make([]Item, len(rows)),
	}
	for i, c := range cats {
		m.Categories[i] = MapCategory(c)
	}
	for i, r := range rows {
		m.Items[i] = MapItem(r, variantsByItem[r.ID], addonsByItem[r.ID])
	}
	return m, nil
}
