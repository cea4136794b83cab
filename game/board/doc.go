// Package board implements the pure tic-tac-toe board model.
//
// A Board is a value type holding nine cells addressed by positions 1-9.
// Apply places a mark and returns a new board, so callers control all
// mutation and the package has no concurrency concerns of its own.
// Evaluate is total over every reachable board and returns exactly one of
// InProgress, Won or Draw.
//
// Usage:
//
//	var b board.Board
//	b, err := b.Apply(5, board.Cross)
//	if err != nil {
//		// board.ErrCellOccupied or board.ErrInvalidPosition
//	}
//	if out := b.Evaluate(); out.Status == board.Won {
//		fmt.Println(out.Winner, "won on", out.Line)
//	}
package board
