package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatplay/tictacbot/game/board"
	"github.com/chatplay/tictacbot/game/service"
)

// runSessionStoreContract exercises the behavior every SessionStore backend
// must share. Each backend test hands in a fresh, empty store.
func runSessionStoreContract(t *testing.T, s service.SessionStore) {
	ctx := context.Background()

	newSession := func(t *testing.T, creator string) *service.GameSession {
		t.Helper()
		id, err := s.NextID(ctx)
		require.NoError(t, err)
		now := time.Now().UTC().Truncate(time.Millisecond)
		return &service.GameSession{
			ID:        id,
			Creator:   creator,
			State:     service.StatePending,
			Turn:      board.Cross,
			Channel:   "general",
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("next id is unique", func(t *testing.T) {
		a, err := s.NextID(ctx)
		require.NoError(t, err)
		b, err := s.NextID(ctx)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("find by id after insert", func(t *testing.T) {
		sess := newSession(t, "alice")
		require.NoError(t, s.Insert(ctx, sess))

		got, err := s.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, sess.ID, got.ID)
		require.Equal(t, "alice", got.Creator)
		require.Equal(t, service.StatePending, got.State)
	})

	t.Run("find by id returns nil for unknown session", func(t *testing.T) {
		got, err := s.FindByID(ctx, 999999)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("find active session for creator and opponent", func(t *testing.T) {
		sess := newSession(t, "bob")
		require.NoError(t, s.Insert(ctx, sess))

		got, err := s.FindActiveSessionFor(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, sess.ID, got.ID)

		sess.Opponent = "carol"
		sess.State = service.StateActive
		require.NoError(t, s.Update(ctx, sess))

		got, err = s.FindActiveSessionFor(ctx, "carol")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, sess.ID, got.ID)

		got, err = s.FindActiveSessionFor(ctx, "nobody")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("update persists board and turn", func(t *testing.T) {
		sess := newSession(t, "dave")
		require.NoError(t, s.Insert(ctx, sess))

		var err error
		sess.Board, err = sess.Board.Apply(5, board.Cross)
		require.NoError(t, err)
		sess.Turn = board.Nought
		sess.RenderRef = "msg-123"
		require.NoError(t, s.Update(ctx, sess))

		got, err := s.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, board.Cross, got.Board.Cell(5))
		require.Equal(t, board.Nought, got.Turn)
		require.Equal(t, "msg-123", got.RenderRef)
	})

	t.Run("update after delete fails with not found", func(t *testing.T) {
		sess := newSession(t, "erin")
		require.NoError(t, s.Insert(ctx, sess))
		require.NoError(t, s.Delete(ctx, sess.ID))

		err := s.Update(ctx, sess)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("delete removes participant lookup", func(t *testing.T) {
		sess := newSession(t, "frank")
		sess.Opponent = "grace"
		sess.State = service.StateActive
		require.NoError(t, s.Insert(ctx, sess))
		require.NoError(t, s.Delete(ctx, sess.ID))

		for _, player := range []string{"frank", "grace"} {
			got, err := s.FindActiveSessionFor(ctx, player)
			require.NoError(t, err)
			require.Nil(t, got)
		}

		// Deleting again is not an error.
		require.NoError(t, s.Delete(ctx, sess.ID))
	})

	t.Run("list returns stored sessions", func(t *testing.T) {
		sess := newSession(t, "heidi")
		require.NoError(t, s.Insert(ctx, sess))

		all, err := s.List(ctx)
		require.NoError(t, err)

		found := false
		for _, got := range all {
			if got.ID == sess.ID {
				found = true
			}
		}
		require.True(t, found, "inserted session missing from List")
	})
}
