package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chatplay/tictacbot/game/board"
	"github.com/chatplay/tictacbot/game/economy"
	"github.com/chatplay/tictacbot/game/service"
)

// Server exposes the game and economy as MCP tools
type Server struct {
	games     service.GameService
	ledger    *economy.Ledger
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server on top of the game service. The ledger
// may be nil to disable the economy tools.
func NewServer(games service.GameService, ledger *economy.Ledger) *Server {
	s := &Server{
		games:  games,
		ledger: ledger,
	}

	s.initMCPServer()
	return s
}

// initMCPServer initializes the MCP server with all tools
func (s *Server) initMCPServer() {
	s.mcpServer = server.NewMCPServer(
		"Tic Tac Toe Bot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tic Tac Toe Bot - MCP Interface

Play two-player tic-tac-toe through game sessions. Every tool takes a
'player' argument identifying who is acting; use a stable name per player.

GAME FLOW:
1. start_game creates a session and returns its id
2. A different player runs join_game with that id
3. Players alternate place_mark (positions 1-9, left to right, top to
   bottom); crosses always move first
4. Three in a row, column, or diagonal wins; a full board is a tie

AVAILABLE TOOLS:
- start_game: Create a new game session
- join_game: Join a pending session by id
- place_mark: Place your mark on a position (1-9)
- end_game: Abandon your current game
- game_status: Show your current game
- list_sessions: List all active sessions
- balance: Check a player's bank balance
- gamble: Bet money on a 1-100 roll (over 50 wins)

A player can only be in one game at a time.`),
	)

	// Register all tools
	s.registerTools()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	playerProp := map[string]interface{}{
		"type":        "string",
		"description": "Identifier of the acting player",
	}

	// Session lifecycle
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Create a new Tic Tac Toe session and wait for an opponent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
				"channel": map[string]interface{}{
					"type":        "string",
					"description": "Channel the game belongs to (optional)",
				},
			},
			Required: []string{"player"},
		},
	}, s.handleStartGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join a pending session as the second player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
				"session_id": map[string]interface{}{
					"type":        "integer",
					"description": "Session id to join",
				},
			},
			Required: []string{"player", "session_id"},
		},
	}, s.handleJoinGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "place_mark",
		Description: "Place your mark on a free position of your current game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
				"position": map[string]interface{}{
					"type":        "integer",
					"description": "Board position 1-9, left to right, top to bottom",
				},
			},
			Required: []string{"player", "position"},
		},
	}, s.handlePlaceMark)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "end_game",
		Description: "Abandon the game you are currently in",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
			},
			Required: []string{"player"},
		},
	}, s.handleEndGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_status",
		Description: "Show the board and turn of your current game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
			},
			Required: []string{"player"},
		},
	}, s.handleGameStatus)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListSessions)

	// Economy
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "balance",
		Description: "Check a player's bank balance, opening an account if needed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
			},
			Required: []string{"player"},
		},
	}, s.handleBalance)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "gamble",
		Description: "Bet money on a 1-100 roll; over 50 doubles the stake",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player": playerProp,
				"amount": map[string]interface{}{
					"type":        "integer",
					"description": "Amount to bet (minimum 5)",
				},
			},
			Required: []string{"player", "amount"},
		},
	}, s.handleGamble)
}

// GetMCPServer returns the underlying MCP server for serving
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tool handlers

func (s *Server) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)
	channel, _ := args["channel"].(string)

	created, err := s.games.Create(ctx, player, channel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session %d. Another player can join with join_game.", created.SessionID)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)
	sessionID, ok := args["session_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("session_id must be a number"), nil
	}

	joined, err := s.games.Join(ctx, player, int64(sessionID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Joined session %d as noughts against %s.\n\n%s\nIt is crosses' turn.",
		joined.SessionID, joined.Creator, formatBoard(joined.Board))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handlePlaceMark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)
	position, ok := args["position"].(float64)
	if !ok {
		return mcp.NewToolResultError("position must be a number from 1 to 9"), nil
	}

	placed, err := s.games.Place(ctx, player, int(position))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(formatBoard(placed.Board))
	switch {
	case placed.Outcome == nil:
		b.WriteString(fmt.Sprintf("\nIt is %s' turn.", placed.Turn.Name()))
	case placed.Outcome.Draw:
		b.WriteString("\nIt ended in a tie!")
	default:
		b.WriteString(fmt.Sprintf("\n%s has won on %s!", placed.Outcome.Winner, placed.Outcome.Line))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleEndGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)

	ended, err := s.games.End(ctx, player)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Ended session %d.", ended.SessionID)), nil
}

func (s *Server) handleGameStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)

	snap, err := s.games.Status(ctx, player)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSession(snap)), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.games.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Sessions (%d):\n\n", len(sessions))
	for _, sess := range sessions {
		opponent := sess.Opponent
		if opponent == "" {
			opponent = "(waiting)"
		}
		result += fmt.Sprintf("- %d: %s vs %s [%s]\n", sess.ID, sess.Creator, opponent, sess.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleBalance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.ledger == nil {
		return mcp.NewToolResultError("the economy is not enabled"), nil
	}
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)

	balance, err := s.ledger.Balance(ctx, player, player)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if balance.Created {
		return mcp.NewToolResultText("I have set up your account!\nBalance: $0"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Balance: $%d", balance.Balance)), nil
}

func (s *Server) handleGamble(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.ledger == nil {
		return mcp.NewToolResultError("the economy is not enabled"), nil
	}
	args := request.Params.Arguments.(map[string]interface{})
	player, _ := args["player"].(string)
	amount, ok := args["amount"].(float64)
	if !ok {
		return mcp.NewToolResultError("amount must be a number"), nil
	}

	bet, err := s.ledger.Gamble(ctx, player, int64(amount))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if bet.Won {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Congrats! you rolled %d. You won $%d\nBalance: $%d", bet.Roll, bet.Amount, bet.Balance)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Unfortunately you rolled %d. You lost $%d\nBalance: $%d", bet.Roll, bet.Amount, bet.Balance)), nil
}

// Formatting helpers

func formatBoard(b board.Board) string {
	cell := func(pos int) string {
		if m := b.Cell(pos); m != board.Empty {
			return m.String()
		}
		return fmt.Sprintf("%d", pos)
	}

	var out strings.Builder
	for row := 0; row < 3; row++ {
		base := row*3 + 1
		out.WriteString(fmt.Sprintf("%s | %s | %s\n", cell(base), cell(base+1), cell(base+2)))
		if row < 2 {
			out.WriteString("---------\n")
		}
	}
	return out.String()
}

func formatSession(sess *service.GameSession) string {
	var b strings.Builder
	opponent := sess.Opponent
	if opponent == "" {
		opponent = "(waiting)"
	}
	b.WriteString(fmt.Sprintf("Session %d: %s (X) vs %s (O) [%s]\n\n", sess.ID, sess.Creator, opponent, sess.State))
	b.WriteString(formatBoard(sess.Board))
	if sess.State == service.StateActive {
		b.WriteString(fmt.Sprintf("\nIt is %s' turn.", sess.Turn.Name()))
	}
	return b.String()
}
