// Package ws pushes order events to POS and kitchen screens over
// WebSocket, one room per institution.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
)

// Event is one message pushed to clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomEvent struct {
	institutionID uuid.UUID
	event         Event
}

// Hub tracks connected clients by institution. All room mutations happen
// on the Run goroutine; mu guards reads from other goroutines.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
	done       chan struct{}

	mu  sync.RWMutex
	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 256),
		done:       make(chan struct{}),
		log:        logger.OrNop(log),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.institutionID] == nil {
				h.rooms[c.institutionID] = make(map[*Client]bool)
			}
			h.rooms[c.institutionID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case re := <-h.broadcast:
			message, err := json.Marshal(re.event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", re.event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for c := range h.rooms[re.institutionID] {
				select {
				case c.send <- message:
				default:
					h.log.Warn("ws client too slow, dropping",
						zap.String("institution_id", re.institutionID.String()))
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c and closes its send channel. Caller holds mu.
func (h *Hub) drop(c *Client) {
	clients, ok := h.rooms[c.institutionID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.institutionID)
	}
}

// Register adds c to its institution's room. It reports false once the
// hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c; unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToInstitution queues event for every client of institutionID.
// Events sent after the hub stopped are discarded.
func (h *Hub) BroadcastToInstitution(institutionID uuid.UUID, event Event) {
	select {
	case h.broadcast <- roomEvent{institutionID: institutionID, event: event}:
	case <-h.done:
	}
}

// Publish marshals payload and broadcasts it under eventType.
func (h *Hub) Publish(institutionID uuid.UUID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.BroadcastToInstitution(institutionID, Event{Type: eventType, Payload: raw})
	return nil
}

// Clients returns how many clients are connected for institutionID.
func (h *Hub) Clients(institutionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[institutionID])
}
