// Command bot is an autonomous opponent. It connects to a running server's
// websocket chat, accepts any game invite it sees in its channel, and plays
// out the game with a simple win-or-block strategy.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatplay/tictacbot/game/board"
)

// Event mirrors the socket envelope.
type Event struct {
	Event string  `json:"event"`
	Data  Message `json:"data"`
}

// Message mirrors the message payload in both directions.
type Message struct {
	ID         string `json:"id,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Author     string `json:"author,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text,omitempty"`
	Embed      *Embed `json:"embed,omitempty"`
}

// Embed mirrors the rendered replies the server posts.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Colour      string `json:"colour,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

// Bot tracks one connection's playing state.
type Bot struct {
	conn    *websocket.Conn
	user    string
	name    string
	prefix  string
	delay   time.Duration
	verbose bool

	invite  *regexp.Regexp
	mark    board.Mark // Empty while not in a game
	lastPos int        // last position we played, to avoid re-sending
}

func NewBot(conn *websocket.Conn, user, name, prefix string) *Bot {
	return &Bot{
		conn:   conn,
		user:   user,
		name:   name,
		prefix: prefix,
		invite: regexp.MustCompile(
			regexp.QuoteMeta(prefix) + `accept (\d+) to join`),
	}
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "Websocket URL of a running server")
	channel := flag.String("channel", "general", "Channel to join")
	user := flag.String("user", "bot", "Player identity")
	name := flag.String("name", "Bot", "Display name")
	prefix := flag.String("prefix", "!", "Command prefix the server uses")
	delayMs := flag.Int("delay", 500, "Delay before each move in milliseconds")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	u, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Invalid URL: %v", err)
	}
	q := u.Query()
	q.Set("channel", *channel)
	q.Set("user", *user)
	q.Set("name", *name)
	u.RawQuery = q.Encode()

	log.Printf("Connecting to %s as %s", u.String(), *user)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	bot := NewBot(conn, *user, *name, *prefix)
	bot.delay = time.Duration(*delayMs) * time.Millisecond
	bot.verbose = *verbose

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var event Event
			if err := conn.ReadJSON(&event); err != nil {
				log.Printf("Connection closed: %v", err)
				return
			}
			bot.handle(event)
		}
	}()

	select {
	case <-interrupt:
		log.Printf("Interrupted, closing connection")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

// handle reacts to one server event.
func (b *Bot) handle(event Event) {
	switch event.Event {
	case "message_posted", "message_edited":
	default:
		return
	}
	msg := event.Data

	// Our own echoed commands come back too.
	if msg.Author == b.user {
		return
	}
	if b.verbose {
		log.Printf("Event %s from %s: %q", event.Event, msg.AuthorName, msg.Text)
	}

	if msg.Embed == nil {
		return
	}
	desc := msg.Embed.Description

	// Game over announcements release us for the next invite.
	if strings.Contains(desc, "has won on") ||
		strings.Contains(desc, "It ended in a tie!") ||
		strings.Contains(desc, "has ended the game.") {
		if b.mark != board.Empty {
			log.Printf("Game over: %s", desc)
			b.mark = board.Empty
			b.lastPos = 0
		}
		return
	}

	if b.mark == board.Empty {
		b.acceptInvite(desc)
		return
	}
	b.playTurn(desc)
}

// acceptInvite joins the announced game. Joining second always plays noughts.
func (b *Bot) acceptInvite(desc string) {
	match := b.invite.FindStringSubmatch(desc)
	if match == nil {
		return
	}
	if strings.Contains(desc, b.name+" has started") {
		return
	}

	log.Printf("Accepting game %s", match[1])
	b.send(fmt.Sprintf("%saccept %s", b.prefix, match[1]))
	b.mark = board.Nought
	b.lastPos = 0
}

// playTurn answers a board render when it is our turn.
func (b *Bot) playTurn(desc string) {
	grid, ok := parseBoard(desc)
	if !ok {
		return
	}
	turn, ok := parseTurn(desc)
	if !ok || turn != b.mark {
		return
	}
	// The final render after a winning move still names the mover's turn.
	if grid.Evaluate().Status != board.InProgress {
		return
	}

	pos := chooseMove(grid, b.mark)
	if pos == 0 {
		return
	}
	// Renders can arrive twice for the same position (post then edit).
	if pos == b.lastPos && grid.Cell(pos) == board.Empty {
		return
	}
	b.lastPos = pos

	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	log.Printf("Playing position %d", pos)
	b.send(fmt.Sprintf("%splace %d", b.prefix, pos))
}

func (b *Bot) send(text string) {
	err := b.conn.WriteJSON(&Event{
		Event: "message",
		Data:  Message{Text: text},
	})
	if err != nil {
		log.Printf("Failed to send %q: %v", text, err)
	}
}
