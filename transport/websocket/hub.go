package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/chatplay/tictacbot/gateway"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Event is the JSON envelope for everything crossing the socket.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// MessagePayload carries a chat message in both directions.
type MessagePayload struct {
	ID         string         `json:"id"`
	Channel    string         `json:"channel"`
	Author     string         `json:"author,omitempty"`
	AuthorName string         `json:"author_name,omitempty"`
	Text       string         `json:"text,omitempty"`
	Embed      *gateway.Embed `json:"embed,omitempty"`
}

// MessageHandler receives every user message posted to a channel. The
// gateway implements it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg gateway.Inbound) error
}

// Client represents one WebSocket connection in a channel.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	channel string
	user    string
	name    string
}

type outbound struct {
	channel string
	data    []byte
}

// Hub maintains the set of active clients per channel, broadcasts chat
// traffic to them, and exposes the channel as a gateway.Chat surface.
type Hub struct {
	handler MessageHandler
	log     *zap.Logger

	// Registered clients by channel
	channels map[string]map[*Client]bool

	// Outbound messages to a channel
	broadcast chan *outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a hub that forwards user messages to handler.
func NewHub(handler MessageHandler, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		handler:    handler,
		log:        log,
		channels:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetHandler installs the message handler. Call before Run; the gateway
// and the hub reference each other, so one of them is wired late.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients. The channel and user
// identity come from query parameters: ?channel=general&user=123&name=Ada
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	user := r.URL.Query().Get("user")
	if channel == "" || user == "" {
		http.Error(w, "channel and user are required", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = user
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		channel: channel,
		user:    user,
		name:    name,
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Post publishes an embed to a channel and returns the message id that
// Edit and Delete accept later.
func (h *Hub) Post(ctx context.Context, channel string, embed *gateway.Embed) (string, error) {
	ref := uuid.NewString()
	h.emit(channel, "message_posted", &MessagePayload{ID: ref, Channel: channel, Embed: embed})
	return ref, nil
}

// Edit replaces the embed of a previously posted message.
func (h *Hub) Edit(ctx context.Context, channel, ref string, embed *gateway.Embed) error {
	h.emit(channel, "message_edited", &MessagePayload{ID: ref, Channel: channel, Embed: embed})
	return nil
}

// Delete removes a previously posted message from the channel view.
func (h *Hub) Delete(ctx context.Context, channel, ref string) error {
	h.emit(channel, "message_deleted", &MessagePayload{ID: ref, Channel: channel})
	return nil
}

// emit queues an event for everyone in a channel.
func (h *Hub) emit(channel, event string, payload *MessagePayload) {
	data, err := json.Marshal(&Event{Event: event, Data: payload})
	if err != nil {
		h.log.Error("Failed to marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	h.broadcast <- &outbound{channel: channel, data: data}
}

// registerClient adds a client to a channel
func (h *Hub) registerClient(client *Client) {
	if h.channels[client.channel] == nil {
		h.channels[client.channel] = make(map[*Client]bool)
	}
	h.channels[client.channel][client] = true

	h.log.Info("Client joined channel",
		zap.String("channel", client.channel),
		zap.String("user", client.user),
		zap.Int("clients", len(h.channels[client.channel])))
}

// unregisterClient removes a client from a channel
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.channels[client.channel]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty channels
			if len(clients) == 0 {
				delete(h.channels, client.channel)
			}

			h.log.Info("Client left channel",
				zap.String("channel", client.channel),
				zap.String("user", client.user),
				zap.Int("clients", len(clients)))
		}
	}
}

// deliver sends an event to all clients in its channel
func (h *Hub) deliver(message *outbound) {
	if clients, ok := h.channels[message.channel]; ok {
		for client := range clients {
			select {
			case client.send <- message.data:
			default:
				// Client's send channel is full, close it
				h.unregisterClient(client)
			}
		}
	}
}

// inboundMessage is the data of a client "message" event.
type inboundMessage struct {
	Text string `mapstructure:"text"`
}

// handleEvent routes one decoded client event.
func (c *Client) handleEvent(event string, data map[string]interface{}) {
	if event != "message" {
		return
	}

	var in inboundMessage
	if err := mapstructure.Decode(data, &in); err != nil {
		c.hub.log.Warn("Malformed message event",
			zap.String("user", c.user), zap.Error(err))
		return
	}
	if in.Text == "" {
		return
	}

	msg := gateway.Inbound{
		ID:         uuid.NewString(),
		Channel:    c.channel,
		Author:     c.user,
		AuthorName: c.name,
		Text:       in.Text,
	}

	// Echo the user's message to the channel before the command runs, so
	// everyone sees the conversation in order.
	c.hub.emit(c.channel, "message_posted", &MessagePayload{
		ID:         msg.ID,
		Channel:    c.channel,
		Author:     c.user,
		AuthorName: c.name,
		Text:       in.Text,
	})

	if c.hub.handler != nil {
		if err := c.hub.handler.HandleMessage(context.Background(), msg); err != nil {
			c.hub.log.Error("Message handler failed",
				zap.String("user", c.user), zap.Error(err))
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket error", zap.Error(err))
			}
			break
		}

		var event struct {
			Event string                 `json:"event"`
			Data  map[string]interface{} `json:"data"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Warn("Malformed client event", zap.Error(err))
			continue
		}
		c.handleEvent(event.Event, event.Data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
