// Package websocket provides the WebSocket chat transport.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// connections, grouped by channel. Each client connection is handled by a
// dedicated goroutine that manages reading, writing, and cleanup.
//
// Message Protocol:
//
// Events are JSON-encoded envelopes {event, data}:
//   - Incoming: {event: "message", data: {text: "!place 5"}}
//   - Outgoing: message_posted, message_edited, message_deleted, each
//     carrying a MessagePayload with a stable message id
//
// Clients identify themselves via query parameters when connecting
// (?channel=general&user=123&name=Ada). Events are broadcast only to
// clients in the same channel.
//
// The Hub doubles as the gateway's rendering surface: Post assigns a
// message id and broadcasts it, Edit and Delete address that id. The
// gateway uses the id of the board message as the edit target for moves.
//
// Usage:
//
//	hub := websocket.NewHub(gw, logger)
//	go hub.Run()
//	http.HandleFunc("/ws", hub.ServeWS)
package websocket
