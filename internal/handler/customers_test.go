package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/handler"
	"github.com/chopbox/api/internal/middleware"
)

// --- Mock store ---

// mockCustomerStore keys customers by phone; seenAt lists the institutions
// each phone has ordered from.
type mockCustomerStore struct {
	byPhone map[string]database.Customer
	seenAt  map[string][]uuid.UUID
	err     error
}

func (m *mockCustomerStore) GetInstitutionCustomerByPhone(_ context.Context, arg database.GetInstitutionCustomerByPhoneParams) (database.Customer, error) {
	if m.err != nil {
		return database.Customer{}, m.err
	}
	c, ok := m.byPhone[arg.Phone]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	for _, id := range m.seenAt[arg.Phone] {
		if id == arg.InstitutionID {
			return c, nil
		}
	}
	return database.Customer{}, pgx.ErrNoRows
}

func setupCustomerRouter(store *mockCustomerStore) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		handler.NewCustomerHandler(store, nil).RegisterRoutes(r)
	})
	return r
}

func TestCustomerLookup_Found(t *testing.T) {
	claims := deviceClaims(enum.RoleCashier)
	store := &mockCustomerStore{
		byPhone: map[string]database.Customer{
			"0241234567": {
				ID:    uuid.New(),
				Name:  "Yaw Asante",
				Phone: "0241234567",
				Email: pgtype.Text{String: "yaw@example.com", Valid: true},
			},
		},
		seenAt: map[string][]uuid.UUID{"0241234567": {claims.InstitutionID}},
	}

	rr := doAuthRequest(t, setupCustomerRouter(store), "GET", "/customers/lookup?phone=0241234567", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]interface{}
	decodeBody(t, rr, &resp)
	if resp["name"] != "Yaw Asante" || resp["email"] != "yaw@example.com" {
		t.Errorf("body: %+v", resp)
	}
	if resp["address"] != nil {
		t.Errorf("address: got %v, want null", resp["address"])
	}
}

func TestCustomerLookup_Errors(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		err   error
		want  int
	}{
		{"missing phone", "", nil, http.StatusBadRequest},
		{"placeholder phone", enum.PhonePlaceholder, nil, http.StatusBadRequest},
		{"unknown phone", "0200000000", nil, http.StatusNotFound},
		{"store failure", "0241234567", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockCustomerStore{err: tt.err}
			path := "/customers/lookup?phone=" + url.QueryEscape(tt.phone)
			rr := doAuthRequest(t, setupCustomerRouter(store), "GET", path, nil, deviceClaims(enum.RoleCashier))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCustomerLookup_OtherInstitutionsCustomer(t *testing.T) {
	store := &mockCustomerStore{
		byPhone: map[string]database.Customer{
			"0241234567": {ID: uuid.New(), Name: "Yaw Asante", Phone: "0241234567"},
		},
		seenAt: map[string][]uuid.UUID{"0241234567": {uuid.New()}},
	}

	rr := doAuthRequest(t, setupCustomerRouter(store), "GET", "/customers/lookup?phone=0241234567", nil, deviceClaims(enum.RoleCashier))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doAuthRequest(t, setupCustomerRouter(store), "GET", "/customers/lookup?phone=0241234567", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without token: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
