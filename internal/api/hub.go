package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/earnscope/earnscope/internal/domain"
)

const (
	writeWait     = 10 * time.Second
	clientBacklog = 64
)

// Hub fans freshly persisted intraday scores out to websocket subscribers.
// Slow clients are dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan domain.DirectionalScore
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// Publish sends a score to every connected subscriber.
func (h *Hub) Publish(score domain.DirectionalScore) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- score:
		default:
			// Client can't keep up; cut it loose.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan domain.DirectionalScore, clientBacklog)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("subscriber connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop pushes scores to one client until its channel closes.
func (h *Hub) writeLoop(c *client) {
	for score := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(score); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close()
}

// readLoop drains control frames and detects disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}
