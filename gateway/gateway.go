package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/chatplay/tictacbot/game/economy"
	"github.com/chatplay/tictacbot/game/service"
)

// DefaultPrefix is the command prefix used when none is configured.
const DefaultPrefix = "!"

// Options tunes a Gateway.
type Options struct {
	// Prefix is the command prefix, e.g. "!".
	Prefix string
	// Admins may use the grant command.
	Admins []string
	// Metrics is optional; nil disables counting.
	Metrics *Metrics
}

// Gateway dispatches chat commands to the game service and ledger.
type Gateway struct {
	games   service.GameService
	ledger  *economy.Ledger
	chat    Chat
	log     *zap.Logger
	metrics *Metrics
	prefix  string
	admins  map[string]bool

	dice func(sides int) int
}

// New creates a Gateway. The ledger may be nil to disable the economy
// commands.
func New(games service.GameService, ledger *economy.Ledger, chat Chat, log *zap.Logger, opts Options) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	admins := make(map[string]bool, len(opts.Admins))
	for _, a := range opts.Admins {
		admins[a] = true
	}
	return &Gateway{
		games:   games,
		ledger:  ledger,
		chat:    chat,
		log:     log,
		metrics: opts.Metrics,
		prefix:  prefix,
		admins:  admins,
		dice:    func(sides int) int { return rand.IntN(sides) + 1 },
	}
}

// command canonicalizes aliases to a single handler name.
var commandAliases = map[string]string{
	"ttt":       "ttt",
	"tictactoe": "ttt",
	"accept":    "accept",
	"place":     "place",
	"end":       "end",
	"bal":       "bal",
	"balance":   "bal",
	"account":   "bal",
	"gain":      "gain",
	"add":       "gain",
	"add_money": "gain",
	"gamble":    "gamble",
	"say":       "say",
	"roll":      "roll",
	"dice":      "roll",
}

// HandleMessage parses msg and runs the command it carries, if any.
// Messages without the command prefix and unknown commands are ignored.
func (g *Gateway) HandleMessage(ctx context.Context, msg Inbound) error {
	if !strings.HasPrefix(msg.Text, g.prefix) {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Text, g.prefix))
	if len(fields) == 0 {
		return nil
	}
	name, ok := commandAliases[strings.ToLower(fields[0])]
	if !ok {
		return nil
	}
	args := fields[1:]

	if g.metrics != nil {
		g.metrics.Commands.WithLabelValues(name).Inc()
	}
	g.log.Debug("Handling command",
		zap.String("command", name),
		zap.String("author", msg.Author),
		zap.String("channel", msg.Channel))

	var err error
	switch name {
	case "ttt":
		err = g.handleStart(ctx, msg)
	case "accept":
		err = g.handleAccept(ctx, msg, args)
	case "place":
		err = g.handlePlace(ctx, msg, args)
	case "end":
		err = g.handleEnd(ctx, msg)
	case "bal":
		err = g.handleBalance(ctx, msg)
	case "gain":
		err = g.handleGrant(ctx, msg, args)
	case "gamble":
		err = g.handleGamble(ctx, msg, args)
	case "say":
		err = g.handleSay(ctx, msg)
	case "roll":
		err = g.handleRoll(ctx, msg, args)
	}
	if err != nil {
		if g.metrics != nil {
			g.metrics.CommandErrors.WithLabelValues(name).Inc()
		}
		g.log.Error("Command failed",
			zap.String("command", name),
			zap.String("author", msg.Author),
			zap.Error(err))
	}
	return err
}

// retryStorage runs fn and retries it once when the store reported a
// transient failure.
func retryStorage[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if errors.Is(err, service.ErrStorageUnavailable) {
		v, err = fn(ctx)
	}
	return v, err
}

func (g *Gateway) post(ctx context.Context, channel string, embed *Embed) error {
	_, err := g.chat.Post(ctx, channel, embed)
	return err
}

func (g *Gateway) handleStart(ctx context.Context, msg Inbound) error {
	created, err := retryStorage(ctx, func(ctx context.Context) (*service.CreateResult, error) {
		return g.games.Create(ctx, msg.Author, msg.Channel)
	})
	switch {
	case errors.Is(err, service.ErrAlreadyInGame):
		return g.post(ctx, msg.Channel, errorReply("You are already in a game!"))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	if g.metrics != nil {
		g.metrics.GamesStarted.Inc()
	}
	return g.post(ctx, msg.Channel, reply(fmt.Sprintf(
		"%s has started a Tic Tac Toe game! Type %saccept %d to join.",
		msg.AuthorName, g.prefix, created.SessionID)))
}

func (g *Gateway) handleAccept(ctx context.Context, msg Inbound, args []string) error {
	if len(args) == 0 {
		return g.post(ctx, msg.Channel, missingArg("game_id", "accept", g.prefix))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return g.post(ctx, msg.Channel, errorReply("Invalid game id, or that game doesn't exist."))
	}

	joined, err := retryStorage(ctx, func(ctx context.Context) (*service.JoinResult, error) {
		return g.games.Join(ctx, msg.Author, id)
	})
	switch {
	case errors.Is(err, service.ErrNotFound):
		return g.post(ctx, msg.Channel, errorReply("Invalid game id, or that game doesn't exist."))
	case errors.Is(err, service.ErrSelfJoin):
		return g.post(ctx, msg.Channel, errorReply("You cannot join your own game!"))
	case errors.Is(err, service.ErrAlreadyInGame):
		return g.post(ctx, msg.Channel, errorReply("You are already in a game!"))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	if err := g.post(ctx, msg.Channel, reply(fmt.Sprintf(
		"You have successfully joined the game! <@%s> type `%splace <position>` to start!",
		joined.Creator, g.prefix))); err != nil {
		return err
	}

	ref, err := g.chat.Post(ctx, msg.Channel, renderBoard(g.prefix, joined.Board, joined.Turn))
	if err != nil {
		return err
	}
	if err := g.games.SetRenderRef(ctx, id, ref); err != nil {
		// The game is playable without the board message; moves will still
		// commit, just without an edit target.
		g.log.Warn("Failed to record board message",
			zap.Int64("session_id", id), zap.Error(err))
	}
	return nil
}

func (g *Gateway) handlePlace(ctx context.Context, msg Inbound, args []string) error {
	if len(args) == 0 {
		return g.post(ctx, msg.Channel, missingArg("position", "place", g.prefix))
	}
	pos, convErr := strconv.Atoi(args[0])
	if convErr != nil {
		return g.post(ctx, msg.Channel, errorReply("Invalid argument, type a number from 1 - 9"))
	}

	result, err := retryStorage(ctx, func(ctx context.Context) (*service.PlaceResult, error) {
		return g.games.Place(ctx, msg.Author, pos)
	})
	switch {
	case errors.Is(err, service.ErrNotInGame):
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"You are not in a game! Type `%sttt` to start one.", g.prefix)))
	case errors.Is(err, service.ErrNotStarted):
		return g.post(ctx, msg.Channel, errorReply("The game hasn't started yet!"))
	case errors.Is(err, service.ErrNotYourTurn):
		return g.post(ctx, msg.Channel, errorReply("It is not your turn."))
	case errors.Is(err, service.ErrInvalidPosition):
		return g.post(ctx, msg.Channel, errorReply("Invalid argument, type a number from 1 - 9"))
	case errors.Is(err, service.ErrCellOccupied):
		return g.post(ctx, msg.Channel, errorReply("That spot is already taken!"))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	// The move is committed; everything below is cosmetic.
	if err := g.chat.Delete(ctx, msg.Channel, msg.ID); err != nil {
		g.log.Warn("Failed to delete command message", zap.Error(err))
	}
	if result.RenderRef != "" {
		if err := g.chat.Edit(ctx, result.Channel, result.RenderRef,
			renderBoard(g.prefix, result.Board, result.Turn)); err != nil {
			g.log.Warn("Failed to update board message",
				zap.Int64("session_id", result.SessionID), zap.Error(err))
		}
	}

	if result.Outcome == nil {
		return nil
	}
	if result.Outcome.Draw {
		if g.metrics != nil {
			g.metrics.GamesFinished.WithLabelValues("draw").Inc()
		}
		return g.post(ctx, result.Channel, reply("It ended in a tie!"))
	}
	if g.metrics != nil {
		g.metrics.GamesFinished.WithLabelValues("win").Inc()
	}
	return g.post(ctx, result.Channel, reply(fmt.Sprintf(
		"<@%s> has won on %s!", result.Outcome.Winner, result.Outcome.Line)))
}

func (g *Gateway) handleEnd(ctx context.Context, msg Inbound) error {
	ended, err := retryStorage(ctx, func(ctx context.Context) (*service.EndResult, error) {
		return g.games.End(ctx, msg.Author)
	})
	switch {
	case errors.Is(err, service.ErrNotInGame):
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"You are not in a game! Type `%sttt` to start one.", g.prefix)))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	if g.metrics != nil {
		g.metrics.GamesFinished.WithLabelValues("ended").Inc()
	}
	return g.post(ctx, ended.Channel, reply(fmt.Sprintf(
		"%s has ended the game.", msg.AuthorName)))
}

func (g *Gateway) handleBalance(ctx context.Context, msg Inbound) error {
	if g.ledger == nil {
		return nil
	}
	result, err := g.ledger.Balance(ctx, msg.Author, msg.AuthorName)
	if err != nil {
		return g.reportFailure(ctx, msg.Channel, err)
	}
	if result.Created {
		return g.post(ctx, msg.Channel, reply(fmt.Sprintf(
			"I have set up your account!\nBalance: $%d", result.Balance)))
	}
	return g.post(ctx, msg.Channel, reply(fmt.Sprintf("Balance: $%d", result.Balance)))
}

func (g *Gateway) handleGrant(ctx context.Context, msg Inbound, args []string) error {
	if g.ledger == nil {
		return nil
	}
	if !g.admins[msg.Author] {
		return g.post(ctx, msg.Channel, errorReply("You do not have permission to use this command."))
	}
	if len(args) == 0 {
		return g.post(ctx, msg.Channel, missingArg("amount", "gain", g.prefix))
	}
	amount, convErr := strconv.ParseInt(args[0], 10, 64)
	if convErr != nil {
		return g.post(ctx, msg.Channel, errorReply("You must enter an integer."))
	}

	result, err := g.ledger.Grant(ctx, msg.Author, amount)
	switch {
	case errors.Is(err, economy.ErrNoAccount):
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"Type %sbal to set up your account!", g.prefix)))
	case errors.Is(err, economy.ErrInvalidAmount):
		return g.post(ctx, msg.Channel, errorReply("You must enter an integer."))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	return g.post(ctx, msg.Channel, reply(fmt.Sprintf(
		"%s, I have added $%d to your account\nnew bal: $%d",
		msg.AuthorName, result.Amount, result.Balance)))
}

func (g *Gateway) handleGamble(ctx context.Context, msg Inbound, args []string) error {
	if g.ledger == nil {
		return nil
	}
	if len(args) == 0 {
		return g.post(ctx, msg.Channel, missingArg("amount", "gamble", g.prefix))
	}
	amount, convErr := strconv.ParseInt(args[0], 10, 64)
	if convErr != nil {
		return g.post(ctx, msg.Channel, errorReply("You must enter an integer."))
	}

	result, err := g.ledger.Gamble(ctx, msg.Author, amount)
	switch {
	case errors.Is(err, economy.ErrNoAccount):
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"Type %sbal to set up your account!", g.prefix)))
	case errors.Is(err, economy.ErrInsufficientFunds):
		balance, balErr := g.ledger.Balance(ctx, msg.Author, msg.AuthorName)
		if balErr != nil {
			return g.reportFailure(ctx, msg.Channel, balErr)
		}
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"You cannot gamble more than you have.\nBalance: $%d", balance.Balance)))
	case errors.Is(err, economy.ErrBetTooSmall):
		return g.post(ctx, msg.Channel, errorReply(fmt.Sprintf(
			"Minimum bet is $%d", economy.MinBet)))
	case errors.Is(err, economy.ErrInvalidAmount):
		return g.post(ctx, msg.Channel, errorReply("You must enter an integer."))
	case err != nil:
		return g.reportFailure(ctx, msg.Channel, err)
	}

	var outcome string
	if result.Won {
		outcome = fmt.Sprintf("Congrats! you rolled %d. You won $%d", result.Roll, result.Amount)
	} else {
		outcome = fmt.Sprintf("Unfortunately you rolled %d. You lost $%d", result.Roll, result.Amount)
	}
	return g.post(ctx, msg.Channel, reply(fmt.Sprintf(
		"%s\nBalance: $%d", outcome, result.Balance)))
}

func (g *Gateway) handleSay(ctx context.Context, msg Inbound) error {
	// Take everything after the command word so interior spacing survives.
	body := strings.TrimPrefix(msg.Text, g.prefix)
	var rest string
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		rest = strings.TrimSpace(body[i:])
	}
	if rest == "" {
		return g.post(ctx, msg.Channel, missingArg("message", "say", g.prefix))
	}
	return g.post(ctx, msg.Channel, reply(rest))
}

func (g *Gateway) handleRoll(ctx context.Context, msg Inbound, args []string) error {
	sides := 6
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return g.post(ctx, msg.Channel, errorReply("You must enter an integer."))
		}
		sides = parsed
	}
	return g.post(ctx, msg.Channel, reply(fmt.Sprintf(
		"You rolled %d on a %d sided die", g.dice(sides), sides)))
}

// reportFailure tells the channel something went wrong after a retry.
func (g *Gateway) reportFailure(ctx context.Context, channel string, err error) error {
	if postErr := g.post(ctx, channel, errorReply(
		"Something went wrong, please try again later.")); postErr != nil {
		return postErr
	}
	return err
}

// missingArg mirrors the missing-argument reply of the help system.
func missingArg(arg, command, prefix string) *Embed {
	return &Embed{
		Title:       "Missing argument",
		Description: fmt.Sprintf("`<%s>` is a required argument that is missing.", arg),
		Colour:      errorColour,
		Footer:      fmt.Sprintf("Use %shelp %s for more information.", prefix, command),
	}
}
