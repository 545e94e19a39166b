package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/access"
)

// sendBuffer is the per-client queue length.
const sendBuffer = 256

// AccessChecker decides whether a caller may see a resident's alerts.
type AccessChecker interface {
	CanAccessResident(ctx context.Context, id *access.Identity, residentID int64) bool
}

// Client represents a connected WebSocket client.
type Client struct {
	conn     *websocket.Conn
	identity *access.Identity
	send     chan Message
	logger   *zap.Logger
}

func newClient(conn *websocket.Conn, id *access.Identity, logger *zap.Logger) *Client {
	return &Client{
		conn:     conn,
		identity: id,
		send:     make(chan Message, sendBuffer),
		logger:   logger,
	}
}

// Hub manages active WebSocket connections and fans out messages to the
// clients allowed to see them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	checker AccessChecker
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub. A nil checker delivers every message
// to every client.
func NewHub(checker AccessChecker, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		checker: checker,
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.Int64("user_id", c.identity.UserID))
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", zap.Int64("user_id", c.identity.UserID))
}

// Broadcast sends msg to every client that may access msg.ResidentID.
// Access is checked outside the hub lock; clients that disconnect in the
// meantime are skipped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.mu.RLock()
	candidates := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		candidates = append(candidates, c)
	}
	h.mu.RUnlock()

	allowed := candidates[:0]
	for _, c := range candidates {
		if h.checker == nil || h.checker.CanAccessResident(ctx, c.identity, msg.ResidentID) {
			allowed = append(allowed, c)
		}
	}
	if len(allowed) == 0 {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range allowed {
		if _, ok := h.clients[c]; !ok {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full, dropping message",
				zap.Int64("user_id", c.identity.UserID))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump sends messages from the client's send channel to the WebSocket.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains the connection to detect client disconnect.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
