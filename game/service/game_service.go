package service

import (
	"context"
	"time"
)

// GameService is the session lifecycle state machine exposed to the command
// gateway. Every operation takes a resolved caller identity and returns
// either a render payload or one of the error kinds in errors.go.
type GameService interface {
	// Create starts a pending session owned by the caller.
	Create(ctx context.Context, callerID, channel string) (*CreateResult, error)

	// Join accepts a pending session by id, activating it with the caller
	// as noughts. Crosses always move first.
	Join(ctx context.Context, callerID string, sessionID int64) (*JoinResult, error)

	// Place applies a move at position 1-9 for the caller's active session.
	Place(ctx context.Context, callerID string, position int) (*PlaceResult, error)

	// End deletes the caller's session regardless of its state.
	End(ctx context.Context, callerID string) (*EndResult, error)

	// Status returns a snapshot of the caller's current session.
	Status(ctx context.Context, callerID string) (*GameSession, error)

	// SetRenderRef records the externally rendered board handle on a
	// session after the gateway posts it. The engine never interprets it.
	SetRenderRef(ctx context.Context, sessionID int64, renderRef string) error

	// ListSessions returns snapshots of every pending and active session.
	ListSessions(ctx context.Context) ([]*GameSession, error)

	// ExpireIdle ends pending sessions older than maxAge and returns how
	// many were removed. Active games are never expired.
	ExpireIdle(ctx context.Context, maxAge time.Duration) (int, error)
}

// SessionStore defines the durable storage operations for game sessions.
// Implementations must be safe for concurrent use across sessions; the
// lifecycle manager serializes operations touching the same session or the
// same player. FindActiveSessionFor and FindByID return (nil, nil) when no
// matching session exists.
type SessionStore interface {
	// NextID produces a fresh session identifier.
	NextID(ctx context.Context) (int64, error)

	// FindActiveSessionFor returns the pending or active session that
	// includes the player as creator or opponent.
	FindActiveSessionFor(ctx context.Context, playerID string) (*GameSession, error)

	// FindByID returns the session with the given id.
	FindByID(ctx context.Context, id int64) (*GameSession, error)

	// Insert persists a new session.
	Insert(ctx context.Context, sess *GameSession) error

	// Update replaces the stored aggregate. It returns ErrNotFound when the
	// session no longer exists, e.g. deleted by the other participant.
	Update(ctx context.Context, sess *GameSession) error

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id int64) error

	// List returns every stored session.
	List(ctx context.Context) ([]*GameSession, error)
}
