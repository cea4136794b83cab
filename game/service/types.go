package service

import (
	"time"

	"github.com/chatplay/tictacbot/game/board"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState string

const (
	// StatePending means the session was created and awaits an opponent.
	StatePending SessionState = "pending"
	// StateActive means the opponent joined and moves are in progress.
	StateActive SessionState = "active"
	// StateFinished is terminal. Finished sessions are reported once and
	// deleted from the store, so they never persist.
	StateFinished SessionState = "finished"
)

// GameSession is the aggregate root for one two-player game.
type GameSession struct {
	ID        int64        `json:"id"`
	Creator   string       `json:"creator"`            // always plays crosses
	Opponent  string       `json:"opponent,omitempty"` // always plays noughts, empty until joined
	State     SessionState `json:"state"`
	Board     board.Board  `json:"board"`
	Turn      board.Mark   `json:"turn"` // meaningful only while active
	RenderRef string       `json:"render_ref,omitempty"`
	Channel   string       `json:"channel"` // opaque scope the game was created in
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ParticipantFor maps a mark to the player identity holding it.
func (s *GameSession) ParticipantFor(m board.Mark) string {
	switch m {
	case board.Cross:
		return s.Creator
	case board.Nought:
		return s.Opponent
	default:
		return ""
	}
}

// MarkOf returns the mark assigned to a player, or Empty for non-participants.
func (s *GameSession) MarkOf(playerID string) board.Mark {
	switch playerID {
	case s.Creator:
		return board.Cross
	case s.Opponent:
		if s.Opponent == "" {
			return board.Empty
		}
		return board.Nought
	default:
		return board.Empty
	}
}

// HasParticipant reports whether the player is the creator or the opponent.
func (s *GameSession) HasParticipant(playerID string) bool {
	return playerID == s.Creator || (s.Opponent != "" && playerID == s.Opponent)
}

// Clone returns a copy of the session. Stores hand out and accept clones so
// callers never share mutable state with storage internals.
func (s *GameSession) Clone() *GameSession {
	c := *s
	return &c
}

// CreateResult is returned by Create for the caller to share the game id.
type CreateResult struct {
	SessionID int64  `json:"session_id"`
	Creator   string `json:"creator"`
	Channel   string `json:"channel"`
}

// JoinResult carries the initial render payload after a successful join.
type JoinResult struct {
	SessionID int64       `json:"session_id"`
	Creator   string      `json:"creator"`
	Opponent  string      `json:"opponent"`
	Board     board.Board `json:"board"`
	Turn      board.Mark  `json:"turn"`
	Channel   string      `json:"channel"`
}

// GameOutcome describes a terminal result of a Place call.
type GameOutcome struct {
	Draw       bool           `json:"draw"`
	Winner     string         `json:"winner,omitempty"` // player identity
	WinnerMark board.Mark     `json:"winner_mark,omitempty"`
	Line       board.LineKind `json:"line,omitempty"`
}

// PlaceResult is returned by Place. Outcome is nil while the game continues.
type PlaceResult struct {
	SessionID int64        `json:"session_id"`
	Board     board.Board  `json:"board"`
	Turn      board.Mark   `json:"turn"` // mark due next, or the mover's when the game just finished
	RenderRef string       `json:"render_ref,omitempty"`
	Channel   string       `json:"channel"`
	Outcome   *GameOutcome `json:"outcome,omitempty"`
}

// EndResult reports an explicit termination.
type EndResult struct {
	SessionID int64  `json:"session_id"`
	EndedBy   string `json:"ended_by"`
	RenderRef string `json:"render_ref,omitempty"`
	Channel   string `json:"channel"`
}
