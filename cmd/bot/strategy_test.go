package main

import (
	"testing"

	"github.com/chatplay/tictacbot/game/board"
)

const emptyRender = "```" +
	"1 | 2 | 3\t\t\t Type !place <position> to play your turn.\n" +
	"---------\t\t\t Get three in a row/diagonal to win.\n" +
	"4 | 5 | 6\t\t\t It is currently crosses' turn.\n" +
	"---------\t\t\t Type !end to end the game.\n" +
	"7 | 8 | 9\n" +
	"```"

const midGameRender = "```" +
	"X | 2 | 3\t\t\t Type !place <position> to play your turn.\n" +
	"---------\t\t\t Get three in a row/diagonal to win.\n" +
	"4 | O | 6\t\t\t It is currently noughts' turn.\n" +
	"---------\t\t\t Type !end to end the game.\n" +
	"X | 8 | 9\n" +
	"```"

func TestParseBoard(t *testing.T) {
	b, ok := parseBoard(emptyRender)
	if !ok {
		t.Fatal("Expected empty render to parse")
	}
	if b != (board.Board{}) {
		t.Errorf("Expected empty board, got %v", b)
	}

	b, ok = parseBoard(midGameRender)
	if !ok {
		t.Fatal("Expected mid-game render to parse")
	}
	want := board.Board{}
	want[0] = board.Cross
	want[4] = board.Nought
	want[6] = board.Cross
	if b != want {
		t.Errorf("Expected %v, got %v", want, b)
	}
}

func TestParseBoard_NotABoard(t *testing.T) {
	for _, text := range []string{
		"You are already in a game!",
		"alice has started a Tic Tac Toe game! Type !accept 1 to join.",
		"```not a grid```",
		"",
	} {
		if _, ok := parseBoard(text); ok {
			t.Errorf("Expected %q not to parse as a board", text)
		}
	}
}

func TestParseTurn(t *testing.T) {
	if turn, ok := parseTurn(emptyRender); !ok || turn != board.Cross {
		t.Errorf("Expected crosses' turn, got %v (ok=%v)", turn, ok)
	}
	if turn, ok := parseTurn(midGameRender); !ok || turn != board.Nought {
		t.Errorf("Expected noughts' turn, got %v (ok=%v)", turn, ok)
	}
	if _, ok := parseTurn("It ended in a tie!"); ok {
		t.Error("Expected no turn in a game-over message")
	}
}

func TestChooseMove(t *testing.T) {
	tests := []struct {
		name     string
		cells    map[int]board.Mark
		mine     board.Mark
		expected int
	}{
		{
			name:     "takes center on empty board",
			cells:    nil,
			mine:     board.Nought,
			expected: 5,
		},
		{
			name: "completes own row",
			cells: map[int]board.Mark{
				1: board.Nought, 2: board.Nought,
				4: board.Cross, 5: board.Cross,
			},
			mine:     board.Nought,
			expected: 3,
		},
		{
			name: "blocks opponent diagonal",
			cells: map[int]board.Mark{
				1: board.Cross, 5: board.Cross,
				2: board.Nought,
			},
			mine:     board.Nought,
			expected: 9,
		},
		{
			name: "winning beats blocking",
			cells: map[int]board.Mark{
				1: board.Cross, 2: board.Cross,
				4: board.Nought, 5: board.Nought,
			},
			mine:     board.Nought,
			expected: 6,
		},
		{
			name: "prefers corner when center taken",
			cells: map[int]board.Mark{
				5: board.Cross,
			},
			mine:     board.Nought,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b board.Board
			for pos, m := range tt.cells {
				b[pos-1] = m
			}
			if got := chooseMove(b, tt.mine); got != tt.expected {
				t.Errorf("chooseMove = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestChooseMove_FullBoard(t *testing.T) {
	b := board.Board{
		board.Cross, board.Nought, board.Cross,
		board.Cross, board.Nought, board.Nought,
		board.Nought, board.Cross, board.Cross,
	}
	if got := chooseMove(b, board.Nought); got != 0 {
		t.Errorf("Expected 0 on a full board, got %d", got)
	}
}
