package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chatplay/tictacbot/game/economy"
	"github.com/chatplay/tictacbot/game/service"
	"github.com/chatplay/tictacbot/game/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	games := service.NewGameService(store.NewMemoryStore(), nil)
	ledger := economy.NewLedger(economy.NewMemoryLedgerStore(), nil)
	return NewServer(games, ledger)
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	if s.GetMCPServer() == nil {
		t.Fatal("Expected an initialized MCP server")
	}
}

func TestServerGameFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	result, err := s.handleStartGame(ctx, toolRequest(map[string]interface{}{
		"player": "alice",
	}))
	if err != nil {
		t.Fatalf("start_game failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("start_game returned error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "Created session 1") {
		t.Errorf("Unexpected start_game result: %q", resultText(t, result))
	}

	result, err = s.handleJoinGame(ctx, toolRequest(map[string]interface{}{
		"player":     "bob",
		"session_id": float64(1),
	}))
	if err != nil {
		t.Fatalf("join_game failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Joined session 1 as noughts against alice.") {
		t.Errorf("Unexpected join_game result: %q", text)
	}
	if !strings.Contains(text, "It is crosses' turn.") {
		t.Errorf("Expected turn hint, got %q", text)
	}

	result, err = s.handlePlaceMark(ctx, toolRequest(map[string]interface{}{
		"player":   "alice",
		"position": float64(5),
	}))
	if err != nil {
		t.Fatalf("place_mark failed: %v", err)
	}
	text = resultText(t, result)
	if !strings.Contains(text, "X") || !strings.Contains(text, "It is noughts' turn.") {
		t.Errorf("Unexpected place_mark result: %q", text)
	}

	result, err = s.handleGameStatus(ctx, toolRequest(map[string]interface{}{
		"player": "bob",
	}))
	if err != nil {
		t.Fatalf("game_status failed: %v", err)
	}
	text = resultText(t, result)
	if !strings.Contains(text, "alice (X) vs bob (O)") {
		t.Errorf("Unexpected game_status result: %q", text)
	}

	result, err = s.handleEndGame(ctx, toolRequest(map[string]interface{}{
		"player": "bob",
	}))
	if err != nil {
		t.Fatalf("end_game failed: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Ended session 1.") {
		t.Errorf("Unexpected end_game result: %q", resultText(t, result))
	}
}

func TestServerToolErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	result, err := s.handlePlaceMark(ctx, toolRequest(map[string]interface{}{
		"player":   "alice",
		"position": float64(5),
	}))
	if err != nil {
		t.Fatalf("place_mark failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result for a player without a game")
	}

	result, err = s.handleJoinGame(ctx, toolRequest(map[string]interface{}{
		"player":     "bob",
		"session_id": "not-a-number",
	}))
	if err != nil {
		t.Fatalf("join_game failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result for a malformed session_id")
	}
}

func TestServerWinAnnouncement(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	s.handleStartGame(ctx, toolRequest(map[string]interface{}{"player": "alice"}))
	s.handleJoinGame(ctx, toolRequest(map[string]interface{}{
		"player": "bob", "session_id": float64(1),
	}))

	moves := []struct {
		player string
		pos    float64
	}{
		{"alice", 1}, {"bob", 4}, {"alice", 2}, {"bob", 5}, {"alice", 3},
	}
	var last *mcp.CallToolResult
	for _, mv := range moves {
		result, err := s.handlePlaceMark(ctx, toolRequest(map[string]interface{}{
			"player": mv.player, "position": mv.pos,
		}))
		if err != nil {
			t.Fatalf("place_mark failed: %v", err)
		}
		if result.IsError {
			t.Fatalf("place_mark(%s, %v) errored: %s", mv.player, mv.pos, resultText(t, result))
		}
		last = result
	}

	if !strings.Contains(resultText(t, last), "alice has won on Rows!") {
		t.Errorf("Unexpected final result: %q", resultText(t, last))
	}
}

func TestServerEconomyTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	result, err := s.handleBalance(ctx, toolRequest(map[string]interface{}{"player": "alice"}))
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if got := resultText(t, result); got != "I have set up your account!\nBalance: $0" {
		t.Errorf("Unexpected balance result: %q", got)
	}

	result, err = s.handleGamble(ctx, toolRequest(map[string]interface{}{
		"player": "alice", "amount": float64(10),
	}))
	if err != nil {
		t.Fatalf("gamble failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected gamble to fail with an empty balance")
	}
}
