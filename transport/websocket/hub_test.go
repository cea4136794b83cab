package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatplay/tictacbot/gateway"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []gateway.Inbound
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg gateway.Inbound) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, msg)
	return nil
}

func (h *recordingHandler) messages() []gateway.Inbound {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gateway.Inbound(nil), h.received...)
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil, nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.channels == nil {
		t.Error("Hub channels map is nil")
	}

	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}

	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}

	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil, nil)

	client := &Client{
		hub:     hub,
		channel: "general",
		user:    "alice",
		send:    make(chan []byte, 256),
	}

	hub.registerClient(client)

	if _, exists := hub.channels["general"]; !exists {
		t.Error("Channel was not created")
	}

	if !hub.channels["general"][client] {
		t.Error("Client was not registered in channel")
	}

	hub.unregisterClient(client)

	if _, exists := hub.channels["general"]; exists {
		t.Error("Empty channel was not cleaned up")
	}
}

func TestServeWSRequiresIdentity(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "?channel=general")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without user, got %d", resp.StatusCode)
	}
}

// dialClient connects a test client to the hub's websocket endpoint.
func dialClient(t *testing.T, server *httptest.Server, channel, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"?channel=" + channel + "&user=" + user + "&name=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads the next event from conn, failing after a timeout.
func readEvent(t *testing.T, conn *websocket.Conn) (string, MessagePayload) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event struct {
		Event string         `json:"event"`
		Data  MessagePayload `json:"data"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return event.Event, event.Data
}

func TestHubMessageFlow(t *testing.T) {
	handler := &recordingHandler{}
	hub := NewHub(handler, nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	alice := dialClient(t, server, "general", "alice")
	bob := dialClient(t, server, "general", "bob")
	carol := dialClient(t, server, "lobby", "carol")

	// Give the hub time to register all three clients.
	time.Sleep(50 * time.Millisecond)

	payload := Event{Event: "message", Data: map[string]interface{}{"text": "!ttt"}}
	if err := alice.WriteJSON(payload); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	// Both clients in the channel see the echoed user message.
	for _, conn := range []*websocket.Conn{alice, bob} {
		event, data := readEvent(t, conn)
		if event != "message_posted" {
			t.Errorf("Expected message_posted, got %s", event)
		}
		if data.Text != "!ttt" || data.Author != "alice" {
			t.Errorf("Unexpected payload: %+v", data)
		}
		if data.ID == "" {
			t.Error("Expected a message id")
		}
	}

	// The handler got the same message.
	deadline := time.Now().Add(2 * time.Second)
	for len(handler.messages()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	received := handler.messages()
	if len(received) != 1 {
		t.Fatalf("Expected one handled message, got %d", len(received))
	}
	if received[0].Text != "!ttt" || received[0].Channel != "general" || received[0].Author != "alice" {
		t.Errorf("Unexpected inbound message: %+v", received[0])
	}

	// The other channel stays quiet.
	carol.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := carol.ReadMessage(); err == nil {
		t.Error("Expected no traffic in the lobby channel")
	}
}

func TestHubPostEditDelete(t *testing.T) {
	hub := NewHub(nil, nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialClient(t, server, "general", "alice")
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	embed := &gateway.Embed{Description: "Balance: $0"}

	ref, err := hub.Post(ctx, "general", embed)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if ref == "" {
		t.Fatal("Expected a message ref")
	}
	event, data := readEvent(t, conn)
	if event != "message_posted" || data.ID != ref {
		t.Errorf("Unexpected post event: %s %+v", event, data)
	}
	if data.Embed == nil || data.Embed.Description != "Balance: $0" {
		t.Errorf("Unexpected embed: %+v", data.Embed)
	}

	if err := hub.Edit(ctx, "general", ref, &gateway.Embed{Description: "Balance: $5"}); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	event, data = readEvent(t, conn)
	if event != "message_edited" || data.ID != ref || data.Embed.Description != "Balance: $5" {
		t.Errorf("Unexpected edit event: %s %+v", event, data)
	}

	if err := hub.Delete(ctx, "general", ref); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	event, data = readEvent(t, conn)
	if event != "message_deleted" || data.ID != ref {
		t.Errorf("Unexpected delete event: %s %+v", event, data)
	}
}
