package main

import (
	"strings"

	"github.com/chatplay/tictacbot/game/board"
)

// cellRows are the line offsets of the three board rows inside the
// rendered grid, skipping the "---------" separators.
var cellRows = [3]int{0, 2, 4}

// parseBoard reads a rendered grid back into a Board. It returns false
// when the text is not a board render.
func parseBoard(description string) (board.Board, bool) {
	var b board.Board
	if !strings.HasPrefix(description, "```") {
		return b, false
	}
	text := strings.Trim(description, "`")
	lines := strings.Split(text, "\n")
	if len(lines) < 5 {
		return b, false
	}

	for row, lineIdx := range cellRows {
		// Instructions sit to the right of the grid, separated by tabs.
		grid := lines[lineIdx]
		if i := strings.IndexByte(grid, '\t'); i >= 0 {
			grid = grid[:i]
		}
		cells := strings.Split(grid, " | ")
		if len(cells) != 3 {
			return board.Board{}, false
		}
		for col, cell := range cells {
			pos := row*3 + col + 1
			switch strings.TrimSpace(cell) {
			case "X":
				b[pos-1] = board.Cross
			case "O":
				b[pos-1] = board.Nought
			default:
				// Empty cells render as their position digit.
				b[pos-1] = board.Empty
			}
		}
	}
	return b, true
}

// parseTurn extracts whose turn the render says it is.
func parseTurn(description string) (board.Mark, bool) {
	switch {
	case strings.Contains(description, "It is currently crosses' turn."):
		return board.Cross, true
	case strings.Contains(description, "It is currently noughts' turn."):
		return board.Nought, true
	}
	return board.Empty, false
}

// chooseMove picks the position to play: win if possible, otherwise block
// the opponent's win, otherwise prefer center, corners, then anything free.
// Returns 0 when the board is full.
func chooseMove(b board.Board, mine board.Mark) int {
	if pos := winningMove(b, mine); pos != 0 {
		return pos
	}
	if pos := winningMove(b, mine.Other()); pos != 0 {
		return pos
	}

	for _, pos := range []int{5, 1, 3, 7, 9, 2, 4, 6, 8} {
		if b.Cell(pos) == board.Empty {
			return pos
		}
	}
	return 0
}

// winningMove returns a position that completes a line for the given mark,
// or 0 when none exists.
func winningMove(b board.Board, m board.Mark) int {
	for pos := 1; pos <= 9; pos++ {
		next, err := b.Apply(pos, m)
		if err != nil {
			continue
		}
		if outcome := next.Evaluate(); outcome.Status == board.Won && outcome.Winner == m {
			return pos
		}
	}
	return 0
}
