package gateway

import (
	"fmt"
	"math/rand/v2"

	"github.com/chatplay/tictacbot/game/board"
)

// errorColour is the fixed red used for error replies.
const errorColour = "ff0000"

// Embed is a rendered reply. Colour is a hex RGB string; when empty the
// chat layer picks a random pastel via PastelColour.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Colour      string `json:"colour,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

// PastelColour returns a random muted colour, each channel in 120-220.
func PastelColour() string {
	r := rand.IntN(101) + 120
	g := rand.IntN(101) + 120
	b := rand.IntN(101) + 120
	return fmt.Sprintf("%02x%02x%02x", r, g, b)
}

// reply wraps a plain message in an embed.
func reply(text string) *Embed {
	return &Embed{Description: text, Colour: PastelColour()}
}

// errorReply wraps an error message in a red embed.
func errorReply(text string) *Embed {
	return &Embed{Description: text, Colour: errorColour}
}

// cell renders a board cell, showing the position digit while empty.
func cell(b board.Board, pos int) string {
	if m := b.Cell(pos); m != board.Empty {
		return m.String()
	}
	return fmt.Sprintf("%d", pos)
}

// renderBoard draws the grid with play instructions alongside.
func renderBoard(prefix string, b board.Board, turn board.Mark) *Embed {
	grid := fmt.Sprintf("```"+
		"%s | %s | %s\t\t\t Type %splace <position> to play your turn.\n"+
		"---------\t\t\t Get three in a row/diagonal to win.\n"+
		"%s | %s | %s\t\t\t It is currently %s' turn.\n"+
		"---------\t\t\t Type %send to end the game.\n"+
		"%s | %s | %s\n"+
		"```",
		cell(b, 1), cell(b, 2), cell(b, 3), prefix,
		cell(b, 4), cell(b, 5), cell(b, 6), turn.Name(),
		prefix,
		cell(b, 7), cell(b, 8), cell(b, 9))
	return reply(grid)
}
