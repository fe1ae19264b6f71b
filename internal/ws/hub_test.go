package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/realtime"
	"github.com/chopbox/api/internal/service"
)

// mockClient creates a client without a real WebSocket connection.
func mockClient(hub *Hub, institutionID uuid.UUID) *Client {
	return &Client{
		hub:           hub,
		institutionID: institutionID,
		send:          make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
	return Event{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	institutionID := uuid.New()
	client := mockClient(hub, institutionID)

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	if got := hub.Clients(institutionID); got != 1 {
		t.Fatalf("clients: got %d, want 1", got)
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	institutionID := uuid.New()
	client1 := mockClient(hub, institutionID)
	client2 := mockClient(hub, institutionID)

	hub.Register(client1)
	hub.Register(client2)
	time.Sleep(10 * time.Millisecond)
	if got := hub.Clients(institutionID); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(client1)
	hub.Unregister(client1)
	time.Sleep(10 * time.Millisecond)
	if got := hub.Clients(institutionID); got != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", got)
	}

	hub.Unregister(client2)
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[institutionID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastIsolatedByInstitution(t *testing.T) {
	hub := startHub(t)
	inst1, inst2 := uuid.New(), uuid.New()
	a1, a2 := mockClient(hub, inst1), mockClient(hub, inst1)
	b := mockClient(hub, inst2)

	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	time.Sleep(10 * time.Millisecond)

	payload := json.RawMessage(`{"order_number":"ORD-1767225600000-042"}`)
	hub.BroadcastToInstitution(inst1, Event{Type: EventOrderCreated, Payload: payload})

	for _, c := range []*Client{a1, a2} {
		e := receive(t, c)
		if e.Type != EventOrderCreated {
			t.Errorf("type: got %q, want %q", e.Type, EventOrderCreated)
		}
		if string(e.Payload) != string(payload) {
			t.Errorf("payload: got %s, want %s", e.Payload, payload)
		}
	}
	expectSilence(t, b)
}

func TestBroadcastToEmptyInstitution(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, uuid.New())
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToInstitution(uuid.New(), Event{Type: EventOrderCreated, Payload: json.RawMessage(`{}`)})
	expectSilence(t, client)
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { hub.Run(ctx); close(done) }()

	client := mockClient(hub, uuid.New())
	hub.Register(client)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("client send channel should be closed")
	}

	if hub.Register(mockClient(hub, uuid.New())) {
		t.Error("register after stop should be refused")
	}
	hub.Unregister(client)
	hub.BroadcastToInstitution(uuid.New(), Event{Type: EventOrderCreated})
}

func TestChangeListener(t *testing.T) {
	hub := startHub(t)
	institutionID := uuid.New()
	client := mockClient(hub, institutionID)
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	orderID := uuid.New()
	listen := ChangeListener(hub)
	listen(realtime.Event{
		Type: realtime.EventUpdate,
		New: &realtime.OrderRow{
			ID:            orderID,
			InstitutionID: institutionID,
			OrderNumber:   "ORD-1767225600000-042",
			Status:        enum.DBStatusPaid,
			PaymentStatus: enum.PaymentStatusPaid,
		},
	})

	e := receive(t, client)
	if e.Type != EventOrderUpdated {
		t.Fatalf("type: got %q, want %q", e.Type, EventOrderUpdated)
	}
	var change OrderChange
	if err := json.Unmarshal(e.Payload, &change); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if change.ID != orderID {
		t.Errorf("id: got %v, want %v", change.ID, orderID)
	}
	if change.Status != enum.StatusConfirmed {
		t.Errorf("status: got %q, want %q", change.Status, enum.StatusConfirmed)
	}

	// Rows without an institution have nowhere to go.
	listen(realtime.Event{Type: realtime.EventDelete, Old: &realtime.OrderRow{ID: orderID}})
	expectSilence(t, client)
}

type staticReader struct{ order service.OrderView }

func (r staticReader) Read(context.Context, uuid.UUID) (*service.OrderView, error) {
	o := r.order
	return &o, nil
}

func TestBridgePaidAlerts(t *testing.T) {
	hub := startHub(t)
	institutionID := uuid.New()
	client := mockClient(hub, institutionID)
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	orderID := uuid.New()
	alerts := realtime.NewPaidAlerts(staticReader{service.OrderView{ID: orderID, InstitutionID: institutionID}}, time.Minute, nil)
	defer alerts.Close()
	notifier := realtime.NewNotifier(nil, nil)
	unsubscribe := Bridge(hub, notifier, alerts)
	defer unsubscribe()
	alerts.Attach(notifier)

	notifier.Publish(realtime.Event{
		Type: realtime.EventInsert,
		New:  &realtime.OrderRow{ID: orderID, InstitutionID: institutionID, PaymentStatus: enum.PaymentStatusPaid},
	})

	types := map[string]bool{}
	types[receive(t, client).Type] = true
	types[receive(t, client).Type] = true
	if !types[EventOrderCreated] || !types[EventOrderPaid] {
		t.Fatalf("expected created and paid events, got %v", types)
	}

	alerts.Accept(orderID)
	if e := receive(t, client); e.Type != EventAlertResolved {
		t.Fatalf("type: got %q, want %q", e.Type, EventAlertResolved)
	}
}
