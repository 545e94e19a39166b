package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/havenwatch/internal/alerts"
	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/internal/server"
	"github.com/HerbHall/havenwatch/pkg/models"
)

// Handler provides the WebSocket alert stream.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	logger *zap.Logger
	unsubs []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

var alertMessages = map[string]MessageType{
	alerts.TopicCreated:      MessageAlertCreated,
	alerts.TopicAcknowledged: MessageAlertAcknowledged,
	alerts.TopicResolved:     MessageAlertResolved,
}

// NewHandler creates a WebSocket handler and subscribes it to alert events.
func NewHandler(tokens *auth.TokenService, bus *event.Bus, checker AccessChecker, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(checker, logger),
		tokens: tokens,
		logger: logger,
	}
	if bus != nil {
		for topic := range alertMessages {
			h.unsubs = append(h.unsubs, bus.Subscribe(topic, h.handleAlertEvent))
		}
		h.logger.Info("subscribed to alert events for WebSocket broadcasting")
	}
	return h
}

// Close unsubscribes the handler from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/alerts", h.handleAlertStream)
}

// handleAlertEvent forwards an alert lifecycle event to the clients that
// may see the alert's resident.
func (h *Handler) handleAlertEvent(ctx context.Context, e event.Event) {
	a, ok := e.Payload.(*models.Alert)
	if !ok {
		return
	}
	h.hub.Broadcast(ctx, Message{
		Type:       alertMessages[e.Topic],
		ResidentID: a.ResidentID,
		Timestamp:  e.Timestamp,
		Data:       AlertData{Alert: a},
	})
}

// handleAlertStream upgrades the connection and streams alert events.
func (h *Handler) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket requests, so the token
	// travels as a query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	server.SetCaller(r.Context(), claims.Identity())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is not checked; the token authenticates the caller.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := newClient(conn, claims.Identity(), h.logger)
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}
