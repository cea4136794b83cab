package economy

import (
	"context"
	"sync"
)

// MemoryLedgerStore is an in-memory LedgerStore for tests and single
// process runs.
type MemoryLedgerStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryLedgerStore creates an empty in-memory ledger store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{accounts: make(map[string]*Account)}
}

func (s *MemoryLedgerStore) Find(ctx context.Context, player string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[player]
	if !ok {
		return nil, nil
	}
	clone := *account
	return &clone, nil
}

func (s *MemoryLedgerStore) Insert(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *account
	s.accounts[account.Player] = &clone
	return nil
}

func (s *MemoryLedgerStore) Update(ctx context.Context, account *Account) error {
	return s.Insert(ctx, account)
}
