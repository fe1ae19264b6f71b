package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/logger"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	log   *zap.Logger
}

func NewReportsHandler(store ReportsStore, log *zap.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, log: logger.OrNop(log)}
}

func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/daily-sales", h.DailySales)
}

type dailySalesResponse struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
	PaidRevenue  string `json:"paid_revenue"`
}

// DailySales handles GET /reports/daily-sales?start_date=&end_date=. Both
// dates are inclusive; the default range is the last 7 days.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := boundInstitution(w, r)
	if !ok {
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		InstitutionID: institutionID,
		StartDate:     pgtype.Timestamptz{Time: start, Valid: true},
		EndDate:       pgtype.Timestamptz{Time: end, Valid: true},
	})
	if err != nil {
		h.log.Error("daily sales report", zap.Error(err))
		writeFailure(w, "internal server error", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:         row.SaleDate.Time.In(businessLocation()).Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: database.NumericToDecimal(row.TotalRevenue).StringFixed(2),
			PaidRevenue:  database.NumericToDecimal(row.PaidRevenue).StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// businessLocation is the restaurants' local time zone (Ghana, UTC+0).
func businessLocation() *time.Location {
	loc, err := time.LoadLocation("Africa/Accra")
	if err != nil {
		return time.FixedZone("GMT", 0)
	}
	return loc
}

// parseDateRange parses inclusive start_date/end_date (YYYY-MM-DD) in local
// time and returns [start, end). Defaults to the last 7 days.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	loc := businessLocation()

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := today.AddDate(0, 0, -6)
	end := today

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date must not be before start_date")
	}
	return start, end.AddDate(0, 0, 1), nil
}
