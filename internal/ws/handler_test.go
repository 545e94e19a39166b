package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/HerbHall/havenwatch/internal/alerts"
	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/event"
	"github.com/HerbHall/havenwatch/pkg/models"
)

type streamEnv struct {
	srv    *httptest.Server
	bus    *event.Bus
	tokens *auth.TokenService
	h      *Handler
}

func newStreamEnv(t *testing.T, checker AccessChecker) *streamEnv {
	t.Helper()
	tokens := auth.NewTokenService([]byte("ws-test-secret-key-32-bytes-long"), time.Minute)
	bus := event.NewBus(testLogger())
	h := NewHandler(tokens, bus, checker, testLogger())
	t.Cleanup(h.Close)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &streamEnv{srv: srv, bus: bus, tokens: tokens, h: h}
}

func (e *streamEnv) dial(t *testing.T, user *models.User) *websocket.Conn {
	t.Helper()
	token, err := e.tokens.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/v1/ws/alerts?token=" + token
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func (e *streamEnv) waitClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.h.hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", e.h.hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAlertStream_RejectsMissingAndBadTokens(t *testing.T) {
	env := newStreamEnv(t, nil)

	for _, path := range []string{"/api/v1/ws/alerts", "/api/v1/ws/alerts?token=garbage"} {
		resp, err := http.Get(env.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestAlertStream_DeliversOnlyAccessibleAlerts(t *testing.T) {
	env := newStreamEnv(t, staticChecker{2: {10}})

	caregiver := env.dial(t, &models.User{ID: 2, Username: "nurse", Role: models.RoleCaregiver})
	env.waitClients(t, 1)

	ctx := context.Background()
	_ = env.bus.Publish(ctx, event.Event{Topic: alerts.TopicCreated, Payload: &models.Alert{ID: 7, ResidentID: 20}})
	_ = env.bus.Publish(ctx, event.Event{Topic: alerts.TopicResolved, Payload: &models.Alert{ID: 8, ResidentID: 10}})

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var msg struct {
		Type       MessageType `json:"type"`
		ResidentID int64       `json:"resident_id"`
		Data       struct {
			Alert models.Alert `json:"alert"`
		} `json:"data"`
	}
	if err := wsjson.Read(readCtx, caregiver, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageAlertResolved || msg.ResidentID != 10 || msg.Data.Alert.ID != 8 {
		t.Errorf("message = %+v", msg)
	}
}

func TestHandleAlertEvent_IgnoresForeignPayloads(t *testing.T) {
	env := newStreamEnv(t, nil)
	client := newTestClient(1, models.RoleAdmin)
	env.h.hub.Register(client)

	_ = env.bus.Publish(context.Background(), event.Event{Topic: alerts.TopicCreated, Payload: "not an alert"})

	select {
	case got := <-client.send:
		t.Errorf("unexpected message %+v", got)
	default:
	}
}
