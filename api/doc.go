// Package api provides the HTTP surface of the bot.
//
// Endpoints:
//   - GET    /api/sessions              List sessions (sort, order, limit)
//   - GET    /api/sessions/{id}         Session details
//   - DELETE /api/sessions/{id}         Force-end a session
//   - GET    /api/players/{id}/session  The player's current session
//   - GET    /ws                        WebSocket chat transport
//   - GET    /healthz                   Liveness probe
//   - GET    /metrics                   Prometheus metrics
//
// The API is an operational view over the game service; gameplay itself
// happens through the chat gateway or the MCP tools.
package api
