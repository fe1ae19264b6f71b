package handler_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/cart"
	"github.com/chopbox/api/internal/handler"
	"github.com/chopbox/api/internal/menu"
	"github.com/chopbox/api/internal/service"
)

type fakeItems struct {
	items map[uuid.UUID]menu.Item
}

func (f *fakeItems) GetItem(_ context.Context, _, itemID uuid.UUID) (menu.Item, error) {
	it, ok := f.items[itemID]
	if !ok {
		return menu.Item{}, menu.ErrItemNotFound
	}
	return it, nil
}

type cartFixture struct {
	router    *chi.Mux
	registry  *cart.Registry
	submitter *mockSubmitter
	jollof    menu.Item
	large     uuid.UUID
	soup      menu.Item
}

func newCartFixture() *cartFixture {
	return newCartFixtureWithLimit(0)
}

func newCartFixtureWithLimit(maxCarts int) *cartFixture {
	large := uuid.New()
	jollof := menu.Item{
		ID:          uuid.New(),
		Name:        "Jollof Rice",
		Price:       decimal.RequireFromString("12.90"),
		IsAvailable: true,
		Variations: []menu.Variation{{
			ID:       "var-jollof",
			Name:     "Variant",
			Required: true,
			Options: []menu.VariationOption{
				{ID: uuid.New(), Name: "Regular", PriceModifier: decimal.Zero},
				{ID: large, Name: "Large", PriceModifier: decimal.RequireFromString("6.00")},
			},
		}},
	}
	soup := menu.Item{ID: uuid.New(), Name: "Light Soup", Price: decimal.RequireFromString("9.50"), IsAvailable: true}

	f := &cartFixture{
		registry:  cart.NewRegistry(maxCarts),
		submitter: &mockSubmitter{},
		jollof:    jollof,
		large:     large,
		soup:      soup,
	}
	items := &fakeItems{items: map[uuid.UUID]menu.Item{jollof.ID: jollof, soup.ID: soup}}
	f.router = chi.NewRouter()
	handler.NewCartHandler(f.registry, items, f.submitter, cart.Policy{}, nil).RegisterRoutes(f.router)
	return f
}

func (f *cartFixture) create(t *testing.T, orderType string) cart.Snapshot {
	t.Helper()
	rr := doRequest(t, f.router, "POST", "/carts", map[string]string{
		"institution_id": uuid.NewString(),
		"order_type":     orderType,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create cart: got %d (body %s)", rr.Code, rr.Body.String())
	}
	var snap cart.Snapshot
	decodeBody(t, rr, &snap)
	return snap
}

func TestCart_BuildAndCheckout(t *testing.T) {
	f := newCartFixture()
	snap := f.create(t, "takeaway")
	base := "/carts/" + snap.ID.String()

	addJollof := map[string]interface{}{
		"menu_item_id": f.jollof.ID,
		"variations":   map[string]uuid.UUID{"var-jollof": f.large},
	}
	for i := 0; i < 2; i++ {
		if rr := doRequest(t, f.router, "POST", base+"/items", addJollof); rr.Code != http.StatusOK {
			t.Fatalf("add jollof: got %d (body %s)", rr.Code, rr.Body.String())
		}
	}
	rr := doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("add soup: got %d", rr.Code)
	}
	decodeBody(t, rr, &snap)

	if len(snap.Lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(snap.Lines))
	}
	if snap.Lines[0].Quantity != 2 {
		t.Errorf("jollof quantity: got %d, want 2", snap.Lines[0].Quantity)
	}
	if !snap.Totals.Total.Equal(decimal.RequireFromString("47.30")) {
		t.Errorf("total: got %s, want 47.30", snap.Totals.Total)
	}

	rr = doRequest(t, f.router, "PATCH", base+"/items/"+snap.Lines[1].ID.String(), map[string]interface{}{"instructions": "extra hot"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set instructions: got %d", rr.Code)
	}

	rr = doRequest(t, f.router, "POST", base+"/checkout", map[string]string{
		"customer_name":  "Kofi Boateng",
		"payment_method": "cash",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkout: got %d (body %s)", rr.Code, rr.Body.String())
	}

	got := f.submitter.got
	if got.OrderType != "takeaway" || got.CustomerName != "Kofi Boateng" || got.PaymentMethod != "cash" {
		t.Errorf("submit request: %+v", got)
	}
	if len(got.Items) != 2 || got.Items[0].VariantName != "Large" || got.Items[0].Quantity != 2 {
		t.Errorf("submitted items: %+v", got.Items)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.RequireFromString("18.90")) {
		t.Errorf("unit price: got %s, want 18.90", got.Items[0].UnitPrice)
	}
	if got.Items[1].Notes != "extra hot" {
		t.Errorf("notes: got %q", got.Items[1].Notes)
	}
	if f.registry.Len() != 0 {
		t.Error("cart should be discarded after checkout")
	}
}

func TestCart_QuantityZeroRemovesLine(t *testing.T) {
	f := newCartFixture()
	snap := f.create(t, "")
	base := "/carts/" + snap.ID.String()

	rr := doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})
	decodeBody(t, rr, &snap)

	rr = doRequest(t, f.router, "PATCH", base+"/items/"+snap.Lines[0].ID.String(), map[string]int{"quantity": 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	decodeBody(t, rr, &snap)
	if len(snap.Lines) != 0 {
		t.Errorf("lines: got %d, want 0", len(snap.Lines))
	}

	rr = doRequest(t, f.router, "DELETE", base+"/items/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("remove unknown line: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCart_Rejections(t *testing.T) {
	f := newCartFixture()
	snap := f.create(t, "dine-in")
	base := "/carts/" + snap.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown cart", "GET", "/carts/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown item", "POST", base + "/items", map[string]interface{}{"menu_item_id": uuid.New()}, http.StatusNotFound},
		{"missing variation", "POST", base + "/items", map[string]interface{}{"menu_item_id": f.jollof.ID}, http.StatusBadRequest},
		{"bad order type", "PATCH", base, map[string]string{"order_type": "drive-thru"}, http.StatusBadRequest},
		{"empty checkout", "POST", base + "/checkout", map[string]string{"customer_name": "Ama"}, http.StatusBadRequest},
		{"create without institution", "POST", "/carts", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, f.router, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
	if f.submitter.got != nil {
		t.Error("nothing should have been submitted")
	}
}

func TestCart_DeliveryNeedsAddress(t *testing.T) {
	f := newCartFixture()
	snap := f.create(t, "delivery")
	base := "/carts/" + snap.ID.String()
	doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})

	rr := doRequest(t, f.router, "POST", base+"/checkout", map[string]string{"customer_name": "Ama", "customer_phone": "0241234567"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("checkout without address: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	doRequest(t, f.router, "PATCH", base, map[string]string{"delivery_address": "12 Oxford St, Osu"})
	rr = doRequest(t, f.router, "POST", base+"/checkout", map[string]string{"customer_name": "Ama", "customer_phone": "0241234567"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkout with address: got %d (body %s)", rr.Code, rr.Body.String())
	}
	if f.submitter.got.DeliveryAddress != "12 Oxford St, Osu" {
		t.Errorf("delivery address: got %q", f.submitter.got.DeliveryAddress)
	}
}

func TestCart_CheckoutSubmitFailureKeepsCart(t *testing.T) {
	f := newCartFixture()
	f.submitter.submitFn = func(context.Context, service.SubmitOrderRequest) (*service.SubmitResult, error) {
		return nil, &service.ValidationError{Err: service.ErrCustomerPhoneRequired}
	}
	snap := f.create(t, "takeaway")
	base := "/carts/" + snap.ID.String()
	doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})

	rr := doRequest(t, f.router, "POST", base+"/checkout", map[string]string{"customer_name": "Ama", "payment_method": "momo"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if f.registry.Len() != 1 {
		t.Error("cart should survive a failed checkout")
	}
}

func TestCart_ConcurrentCheckoutSubmitsOnce(t *testing.T) {
	f := newCartFixture()
	started := make(chan struct{})
	release := make(chan struct{})
	var submits atomic.Int32
	f.submitter.submitFn = func(context.Context, service.SubmitOrderRequest) (*service.SubmitResult, error) {
		if submits.Add(1) == 1 {
			close(started)
		}
		<-release
		return &service.SubmitResult{ID: uuid.New(), OrderNumber: "ORD-1767225600000-007"}, nil
	}
	snap := f.create(t, "takeaway")
	base := "/carts/" + snap.ID.String()
	doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})

	body := map[string]string{"customer_name": "Ama", "payment_method": "cash"}
	first := make(chan int, 1)
	go func() {
		first <- doRequest(t, f.router, "POST", base+"/checkout", body).Code
	}()
	<-started

	rr := doRequest(t, f.router, "POST", base+"/checkout", body)
	if rr.Code != http.StatusConflict {
		t.Errorf("second checkout: got %d, want %d", rr.Code, http.StatusConflict)
	}
	rr = doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})
	if rr.Code != http.StatusConflict {
		t.Errorf("edit during checkout: got %d, want %d", rr.Code, http.StatusConflict)
	}

	close(release)
	if code := <-first; code != http.StatusCreated {
		t.Fatalf("first checkout: got %d, want %d", code, http.StatusCreated)
	}
	if n := submits.Load(); n != 1 {
		t.Errorf("submits: got %d, want 1", n)
	}
	if f.registry.Len() != 0 {
		t.Error("cart should be discarded after checkout")
	}
}

func TestCart_FailedCheckoutCanBeRetried(t *testing.T) {
	f := newCartFixture()
	fail := true
	f.submitter.submitFn = func(context.Context, service.SubmitOrderRequest) (*service.SubmitResult, error) {
		if fail {
			fail = false
			return nil, context.DeadlineExceeded
		}
		return &service.SubmitResult{ID: uuid.New(), OrderNumber: "ORD-1767225600000-008"}, nil
	}
	snap := f.create(t, "takeaway")
	base := "/carts/" + snap.ID.String()
	doRequest(t, f.router, "POST", base+"/items", map[string]interface{}{"menu_item_id": f.soup.ID})

	body := map[string]string{"customer_name": "Ama", "payment_method": "cash"}
	if rr := doRequest(t, f.router, "POST", base+"/checkout", body); rr.Code != http.StatusInternalServerError {
		t.Fatalf("failing checkout: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if rr := doRequest(t, f.router, "POST", base+"/checkout", body); rr.Code != http.StatusCreated {
		t.Fatalf("retried checkout: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestCart_CreateRespectsLimit(t *testing.T) {
	f := newCartFixtureWithLimit(1)
	f.create(t, "")

	rr := doRequest(t, f.router, "POST", "/carts", map[string]string{"institution_id": uuid.NewString()})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
