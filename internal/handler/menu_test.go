package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chopbox/api/internal/handler"
	"github.com/chopbox/api/internal/menu"
)

type mockMenuReader struct {
	menu *menu.Menu
	err  error
	got  uuid.UUID
}

func (m *mockMenuReader) GetMenu(_ context.Context, institutionID uuid.UUID) (*menu.Menu, error) {
	m.got = institutionID
	return m.menu, m.err
}

func setupMenuRouter(m handler.MenuReader) *chi.Mux {
	r := chi.NewRouter()
	handler.NewMenuHandler(m, nil).RegisterRoutes(r)
	return r
}

func TestGetMenu(t *testing.T) {
	institutionID := uuid.New()
	m := &mockMenuReader{menu: &menu.Menu{
		Categories: []menu.Category{{ID: uuid.New(), Name: "Mains", Slug: "mains"}},
		Items:      []menu.Item{{ID: uuid.New(), Name: "Jollof Rice", IsAvailable: true}},
	}}

	rr := doRequest(t, setupMenuRouter(m), "GET", "/menu?institution_id="+institutionID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if m.got != institutionID {
		t.Errorf("institution: got %v, want %v", m.got, institutionID)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Error("expected Cache-Control header")
	}

	var resp menu.Menu
	decodeBody(t, rr, &resp)
	if len(resp.Categories) != 1 || len(resp.Items) != 1 || resp.Items[0].Name != "Jollof Rice" {
		t.Errorf("unexpected menu: %+v", resp)
	}
}

func TestGetMenu_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{"missing institution", "", nil, http.StatusBadRequest},
		{"bad institution", "?institution_id=abc", nil, http.StatusBadRequest},
		{"store failure", "?institution_id=" + uuid.NewString(), errors.New("list menu items: timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, setupMenuRouter(&mockMenuReader{err: tt.err}), "GET", "/menu"+tt.query, nil)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
