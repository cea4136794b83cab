package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chatplay/tictacbot/game/board"
)

// gameServiceImpl implements the GameService state machine on top of a
// SessionStore. All invariants live here: the store only persists.
type gameServiceImpl struct {
	store SessionStore
	log   *zap.Logger

	// players serializes create/join/place/end per caller identity so the
	// find-active-then-write sequence is atomic for a single player.
	// sessions serializes read-modify-write per session id. A player key is
	// always acquired before a session key and at most one of each is held,
	// so the ordering is deadlock free and independent sessions never block
	// one another.
	players  *keyedMutex
	sessions *keyedMutex
}

// NewGameService creates the session lifecycle manager.
func NewGameService(store SessionStore, log *zap.Logger) GameService {
	if log == nil {
		log = zap.NewNop()
	}
	return &gameServiceImpl{
		store:    store,
		log:      log,
		players:  newKeyedMutex(),
		sessions: newKeyedMutex(),
	}
}

func sessionKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Create starts a new pending session for the caller.
func (s *gameServiceImpl) Create(ctx context.Context, callerID, channel string) (*CreateResult, error) {
	unlock := s.players.lock(callerID)
	defer unlock()

	existing, err := s.store.FindActiveSessionFor(ctx, callerID)
	if err != nil {
		return nil, storageErr(err)
	}
	if existing != nil {
		return nil, ErrAlreadyInGame
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	now := time.Now().UTC()
	sess := &GameSession{
		ID:        id,
		Creator:   callerID,
		State:     StatePending,
		Turn:      board.Cross,
		Channel:   channel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, sess); err != nil {
		return nil, storageErr(err)
	}

	s.log.Info("session created",
		zap.Int64("session_id", id),
		zap.String("creator", callerID),
		zap.String("channel", channel))

	return &CreateResult{SessionID: id, Creator: callerID, Channel: channel}, nil
}

// Join activates a pending session with the caller as noughts.
func (s *gameServiceImpl) Join(ctx context.Context, callerID string, sessionID int64) (*JoinResult, error) {
	unlockPlayer := s.players.lock(callerID)
	defer unlockPlayer()

	unlockSession := s.sessions.lock(sessionKey(sessionID))
	defer unlockSession()

	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, storageErr(err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if callerID == sess.Creator {
		return nil, ErrSelfJoin
	}
	if sess.State != StatePending {
		// Another player got there first; the game is no longer open.
		return nil, ErrNotFound
	}

	inGame, err := s.store.FindActiveSessionFor(ctx, callerID)
	if err != nil {
		return nil, storageErr(err)
	}
	if inGame != nil {
		return nil, ErrAlreadyInGame
	}

	sess.Opponent = callerID
	sess.State = StateActive
	sess.Turn = board.Cross
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, sess); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}

	s.log.Info("session joined",
		zap.Int64("session_id", sessionID),
		zap.String("opponent", callerID))

	return &JoinResult{
		SessionID: sess.ID,
		Creator:   sess.Creator,
		Opponent:  sess.Opponent,
		Board:     sess.Board,
		Turn:      sess.Turn,
		Channel:   sess.Channel,
	}, nil
}

// Place applies one move for the caller. The board mutation is committed
// before the caller renders it, and a rejected move never mutates state.
func (s *gameServiceImpl) Place(ctx context.Context, callerID string, position int) (*PlaceResult, error) {
	unlockPlayer := s.players.lock(callerID)
	defer unlockPlayer()

	found, err := s.store.FindActiveSessionFor(ctx, callerID)
	if err != nil {
		return nil, storageErr(err)
	}
	if found == nil {
		return nil, ErrNotInGame
	}

	unlockSession := s.sessions.lock(sessionKey(found.ID))
	defer unlockSession()

	// Re-read under the session lock: the other participant may have moved
	// or ended the game between the lookup and the lock.
	sess, err := s.store.FindByID(ctx, found.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	if sess == nil || !sess.HasParticipant(callerID) {
		return nil, ErrNotInGame
	}
	if sess.State != StateActive {
		return nil, ErrNotStarted
	}

	mark := sess.MarkOf(callerID)
	if mark != sess.Turn {
		return nil, ErrNotYourTurn
	}

	next, err := sess.Board.Apply(position, mark)
	switch err {
	case nil:
	case board.ErrInvalidPosition:
		return nil, ErrInvalidPosition
	case board.ErrCellOccupied:
		return nil, ErrCellOccupied
	default:
		return nil, err
	}

	sess.Board = next
	sess.UpdatedAt = time.Now().UTC()

	// Turn stays the mover's mark for a finished game, so the final board
	// render names the player who closed it out.
	result := &PlaceResult{
		SessionID: sess.ID,
		Board:     sess.Board,
		Turn:      mark,
		RenderRef: sess.RenderRef,
		Channel:   sess.Channel,
	}

	// Evaluate before persisting: the whole transition lands in a single
	// storage call, either the update below or the terminal delete, so a
	// storage failure rejects the move instead of half-committing it with
	// an unflipped turn.
	switch out := sess.Board.Evaluate(); out.Status {
	case board.Won:
		result.Outcome = &GameOutcome{
			Winner:     sess.ParticipantFor(out.Winner),
			WinnerMark: out.Winner,
			Line:       out.Line,
		}
		if err := s.finish(ctx, sess); err != nil {
			return nil, err
		}
	case board.Draw:
		result.Outcome = &GameOutcome{Draw: true}
		if err := s.finish(ctx, sess); err != nil {
			return nil, err
		}
	default:
		sess.Turn = mark.Other()
		if err := s.store.Update(ctx, sess); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrNotInGame
			}
			return nil, storageErr(err)
		}
		result.Turn = sess.Turn
	}

	return result, nil
}

// finish transitions a session to its terminal state and removes it.
func (s *gameServiceImpl) finish(ctx context.Context, sess *GameSession) error {
	sess.State = StateFinished
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		return storageErr(err)
	}
	s.log.Info("session finished", zap.Int64("session_id", sess.ID))
	return nil
}

// End deletes the caller's session unconditionally.
func (s *gameServiceImpl) End(ctx context.Context, callerID string) (*EndResult, error) {
	unlockPlayer := s.players.lock(callerID)
	defer unlockPlayer()

	found, err := s.store.FindActiveSessionFor(ctx, callerID)
	if err != nil {
		return nil, storageErr(err)
	}
	if found == nil {
		return nil, ErrNotInGame
	}

	unlockSession := s.sessions.lock(sessionKey(found.ID))
	defer unlockSession()

	sess, err := s.store.FindByID(ctx, found.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	if sess == nil || !sess.HasParticipant(callerID) {
		return nil, ErrNotInGame
	}

	if err := s.finish(ctx, sess); err != nil {
		return nil, err
	}

	s.log.Info("session ended",
		zap.Int64("session_id", sess.ID),
		zap.String("ended_by", callerID))

	return &EndResult{
		SessionID: sess.ID,
		EndedBy:   callerID,
		RenderRef: sess.RenderRef,
		Channel:   sess.Channel,
	}, nil
}

// Status returns a read-only snapshot of the caller's current session.
func (s *gameServiceImpl) Status(ctx context.Context, callerID string) (*GameSession, error) {
	sess, err := s.store.FindActiveSessionFor(ctx, callerID)
	if err != nil {
		return nil, storageErr(err)
	}
	if sess == nil {
		return nil, ErrNotInGame
	}
	return sess.Clone(), nil
}

// SetRenderRef stores the opaque render handle produced by the gateway.
func (s *gameServiceImpl) SetRenderRef(ctx context.Context, sessionID int64, renderRef string) error {
	unlock := s.sessions.lock(sessionKey(sessionID))
	defer unlock()

	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return storageErr(err)
	}
	if sess == nil {
		return ErrNotFound
	}
	sess.RenderRef = renderRef
	sess.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, sess); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storageErr(err)
	}
	return nil
}

// ListSessions returns snapshots of every stored session.
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*GameSession, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	result := make([]*GameSession, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sess.Clone())
	}
	return result, nil
}

// ExpireIdle removes pending sessions that were never joined within maxAge.
func (s *gameServiceImpl) ExpireIdle(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, storageErr(err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, candidate := range sessions {
		if candidate.State != StatePending || !candidate.CreatedAt.Before(cutoff) {
			continue
		}

		unlock := s.sessions.lock(sessionKey(candidate.ID))
		sess, err := s.store.FindByID(ctx, candidate.ID)
		if err != nil {
			unlock()
			return removed, storageErr(err)
		}
		// Re-check under the lock: the session may have been joined since.
		if sess != nil && sess.State == StatePending && sess.CreatedAt.Before(cutoff) {
			if err := s.store.Delete(ctx, sess.ID); err != nil {
				unlock()
				return removed, storageErr(err)
			}
			removed++
			s.log.Info("expired idle session", zap.Int64("session_id", sess.ID))
		}
		unlock()
	}

	return removed, nil
}
