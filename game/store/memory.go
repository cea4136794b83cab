package store

import (
	"context"
	"sync"

	"github.com/chatplay/tictacbot/game/service"
)

// MemoryStore is an in-process SessionStore, used by default and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*service.GameSession
	lastID   int64
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*service.GameSession)}
}

// NextID returns the next identifier from a monotonic counter.
func (m *MemoryStore) NextID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	return m.lastID, nil
}

// FindActiveSessionFor scans for a non-finished session including the player.
func (m *MemoryStore) FindActiveSessionFor(ctx context.Context, playerID string) (*service.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.sessions {
		if sess.State != service.StateFinished && sess.HasParticipant(playerID) {
			return sess.Clone(), nil
		}
	}
	return nil, nil
}

// FindByID returns the session with the given id, or nil.
func (m *MemoryStore) FindByID(ctx context.Context, id int64) (*service.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[id]; ok {
		return sess.Clone(), nil
	}
	return nil, nil
}

// Insert stores a new session.
func (m *MemoryStore) Insert(ctx context.Context, sess *service.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess.Clone()
	return nil
}

// Update replaces a stored session, failing if it was concurrently deleted.
func (m *MemoryStore) Update(ctx context.Context, sess *service.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; !ok {
		return service.ErrNotFound
	}
	m.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete removes a session. Removing an absent session is a no-op.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// List returns a snapshot of all stored sessions.
func (m *MemoryStore) List(ctx context.Context) ([]*service.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*service.GameSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess.Clone())
	}
	return result, nil
}
