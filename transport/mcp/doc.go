// Package mcp provides the Model Context Protocol server for the bot.
//
// The package exposes the game service and the economy as tools an AI
// agent can call directly, without going through the chat gateway:
//   - start_game: Create a new session and wait for an opponent
//   - join_game: Join a pending session by id
//   - place_mark: Place a mark on a board position (1-9)
//   - end_game: Abandon the current game
//   - game_status: Show the caller's current board and turn
//   - list_sessions: List all sessions
//   - balance: Check a bank balance, opening an account if needed
//   - gamble: Bet on a 1-100 roll
//
// Every tool takes a player argument; the same session, turn, and
// one-game-per-player rules apply as in the chat interface.
//
// Transport Modes:
//
// The server supports stdio for local MCP clients and an HTTP endpoint
// for remote integration:
//
//	srv := mcp.NewServer(gameService, ledger)
//	server.ServeStdio(srv.GetMCPServer())
package mcp
