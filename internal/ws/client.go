package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token is checked before upgrading.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one WebSocket connection bound to an institution.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	institutionID uuid.UUID
	send          chan []byte
}

// ReadPump only watches for disconnects; screens never send messages. Any
// read error, including a missed pong, ends the connection.
func (c *Client) ReadPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.hub.log.Debug("websocket closed",
				zap.String("institution_id", c.institutionID.String()),
				zap.Error(err))
		}
		return
	}
}

// WritePump sends each queued event as its own text frame and pings the
// peer every pingPeriod. It owns all writes to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case msg, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			payload = msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		if err := c.write(kind, payload); err != nil {
			c.hub.log.Debug("websocket write", zap.Error(err))
			return
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, payload)
}

// ServeWS upgrades GET /ws/institutions/{iid}/orders?token=JWT. Browsers
// cannot set headers on WebSocket requests, so the token rides in the
// query string.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	institutionID, err := uuid.Parse(chi.URLParam(r, "iid"))
	if err != nil {
		http.Error(w, "invalid institution id", http.StatusBadRequest)
		return
	}
	if claims.InstitutionID != institutionID {
		http.Error(w, "institution access denied", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:           hub,
		conn:          conn,
		institutionID: institutionID,
		send:          make(chan []byte, 256),
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
