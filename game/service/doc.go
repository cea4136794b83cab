// Package service implements the game session lifecycle state machine.
//
// The service package implements:
//   - Session creation, joining, move application and teardown
//   - The at-most-one-active-session-per-player invariant
//   - Strict turn alternation and deterministic win/draw announcement
//   - Per-player and per-session mutual exclusion
//
// Core Interfaces:
//
// GameService is the operation surface called by the command gateway on
// behalf of a resolved caller identity. SessionStore abstracts the durable
// storage backend (memory, sqlite or redis, see game/store).
//
// Architecture:
//
// The service layer sits between the transports (WebSocket chat, MCP, REST)
// and the pure board model. It owns every invariant; the store only
// persists and queries. State-mutating operations on one session are
// linearized by a lock keyed on the session id, and the check-then-insert
// sequence for one player is guarded by a lock keyed on the player id, so
// concurrent commands for independent sessions never block each other.
//
// Ordering:
//
// A mutation is durably committed before the gateway is handed the payload
// to render, so a visible board state always corresponds to a persisted one.
//
// Usage:
//
//	store := store.NewMemoryStore()
//	games := service.NewGameService(store, logger)
//
//	created, err := games.Create(ctx, callerID, channel)
//	if err != nil {
//		// one of the service.Err* kinds
//	}
package service
