package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPosition = errors.New("position must be between 1 and 9")
	ErrCellOccupied    = errors.New("cell is already occupied")
)

// Mark is the value held by a single cell.
type Mark uint8

const (
	Empty Mark = iota
	Cross
	Nought
)

// String returns the display character for a mark.
func (m Mark) String() string {
	switch m {
	case Cross:
		return "X"
	case Nought:
		return "O"
	default:
		return " "
	}
}

// Name returns the participant-facing name for a mark ("crosses"/"noughts").
func (m Mark) Name() string {
	switch m {
	case Cross:
		return "crosses"
	case Nought:
		return "noughts"
	default:
		return "empty"
	}
}

// Other returns the opposing mark. Empty maps to itself.
func (m Mark) Other() Mark {
	switch m {
	case Cross:
		return Nought
	case Nought:
		return Cross
	default:
		return Empty
	}
}

// ParseMark converts a display character back into a mark.
func ParseMark(s string) (Mark, error) {
	switch s {
	case "X":
		return Cross, nil
	case "O":
		return Nought, nil
	case " ", "":
		return Empty, nil
	default:
		return Empty, fmt.Errorf("invalid mark %q", s)
	}
}

// MarshalJSON encodes a mark as its display character so persisted boards
// read as "X"/"O"/" " in storage, matching the rendered grid.
func (m Mark) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes the display-character encoding produced by MarshalJSON.
func (m *Mark) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid mark %s", data)
	}
	parsed, err := ParseMark(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Board is a 3x3 grid addressed by positions 1-9, read left to right,
// top to bottom:
//
//	1 | 2 | 3
//	4 | 5 | 6
//	7 | 8 | 9
type Board [9]Mark

// Cell returns the mark at the given position.
func (b Board) Cell(pos int) Mark {
	return b[pos-1]
}

// Apply returns a copy of the board with the mark placed at the given
// position. The receiver is never mutated; a failed move returns the
// board unchanged.
func (b Board) Apply(pos int, m Mark) (Board, error) {
	if pos < 1 || pos > 9 {
		return b, ErrInvalidPosition
	}
	if b[pos-1] != Empty {
		return b, ErrCellOccupied
	}
	next := b
	next[pos-1] = m
	return next, nil
}

// Full reports whether every cell is occupied.
func (b Board) Full() bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

// LineKind identifies which family of lines produced a win. It only exists
// to drive the "won on Rows/Columns/Diagonals" announcement text.
type LineKind string

const (
	Rows      LineKind = "Rows"
	Columns   LineKind = "Columns"
	Diagonals LineKind = "Diagonals"
)

// Status classifies a board after a move.
type Status uint8

const (
	InProgress Status = iota
	Won
	Draw
)

// Outcome is the result of evaluating a board.
type Outcome struct {
	Status Status
	Winner Mark     // set when Status == Won
	Line   LineKind // set when Status == Won
}

// lines holds every winning line grouped by kind, in evaluation order.
var lines = []struct {
	kind LineKind
	sets [][3]int
}{
	{Rows, [][3]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}},
	{Columns, [][3]int{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}},
	{Diagonals, [][3]int{{1, 5, 9}, {3, 5, 7}}},
}

// Evaluate classifies the board. Rows are checked before columns before
// diagonals; since evaluation runs after every single move, at most one
// line can be newly complete.
func (b Board) Evaluate() Outcome {
	for _, group := range lines {
		for _, line := range group.sets {
			m := b.Cell(line[0])
			if m != Empty && m == b.Cell(line[1]) && m == b.Cell(line[2]) {
				return Outcome{Status: Won, Winner: m, Line: group.kind}
			}
		}
	}
	if b.Full() {
		return Outcome{Status: Draw}
	}
	return Outcome{Status: InProgress}
}
