package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/handler"
	"github.com/chopbox/api/internal/middleware"
)

// --- Mock Store ---

type mockReportsStore struct {
	rows []database.GetDailySalesRow
	err  error
	got  database.GetDailySalesParams
}

func (m *mockReportsStore) GetDailySales(_ context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error) {
	m.got = arg
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func setupReportsRouter(store *mockReportsStore) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		handler.NewReportsHandler(store, nil).RegisterRoutes(r)
	})
	return r
}

func TestDailySales_Success(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	store := &mockReportsStore{rows: []database.GetDailySalesRow{{
		SaleDate:     pgtype.Timestamptz{Time: day, Valid: true},
		OrderCount:   12,
		TotalRevenue: database.DecimalToNumeric(decimal.RequireFromString("540.5")),
		PaidRevenue:  database.DecimalToNumeric(decimal.RequireFromString("480")),
	}}}
	claims := deviceClaims(enum.RoleCashier)

	rr := doAuthRequest(t, setupReportsRouter(store), "GET",
		"/reports/daily-sales?start_date=2026-03-10&end_date=2026-03-14", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp []map[string]interface{}
	decodeBody(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("rows: got %d, want 1", len(resp))
	}
	if resp[0]["date"] != "2026-03-14" || resp[0]["total_revenue"] != "540.50" || resp[0]["paid_revenue"] != "480.00" {
		t.Errorf("row: %+v", resp[0])
	}

	if store.got.InstitutionID != claims.InstitutionID {
		t.Errorf("institution: got %s", store.got.InstitutionID)
	}
	// end_date is inclusive, so the query bound is the following midnight.
	if got := store.got.EndDate.Time.UTC(); !got.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end bound: got %s", got)
	}
}

func TestDailySales_DefaultRange(t *testing.T) {
	store := &mockReportsStore{}
	rr := doAuthRequest(t, setupReportsRouter(store), "GET", "/reports/daily-sales", nil, deviceClaims(enum.RoleCashier))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if span := store.got.EndDate.Time.Sub(store.got.StartDate.Time); span != 7*24*time.Hour {
		t.Errorf("default span: got %s, want 168h", span)
	}
}

func TestDailySales_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		storeErr error
		want     int
	}{
		{"bad start", "?start_date=14-03-2026", nil, http.StatusBadRequest},
		{"bad end", "?end_date=yesterday", nil, http.StatusBadRequest},
		{"end before start", "?start_date=2026-03-14&end_date=2026-03-10", nil, http.StatusBadRequest},
		{"store failure", "", errors.New("timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockReportsStore{err: tt.storeErr}
			rr := doAuthRequest(t, setupReportsRouter(store), "GET", "/reports/daily-sales"+tt.query, nil, deviceClaims(enum.RoleCashier))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
