package economy

import (
	"context"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

// MinBet is the smallest amount a player may gamble.
const MinBet = 5

// Account is a player's bank record.
type Account struct {
	Player  string `json:"player"`
	Nick    string `json:"nick"`
	Balance int64  `json:"balance"`
}

// LedgerStore persists accounts. Find returns (nil, nil) when the player
// has no account yet.
type LedgerStore interface {
	Find(ctx context.Context, player string) (*Account, error)
	Insert(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

// BalanceResult reports a balance lookup. Created is true when the lookup
// opened a fresh account.
type BalanceResult struct {
	Player  string `json:"player"`
	Balance int64  `json:"balance"`
	Created bool   `json:"created"`
}

// GrantResult reports an administrative deposit.
type GrantResult struct {
	Player  string `json:"player"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"`
}

// GambleResult reports a resolved bet.
type GambleResult struct {
	Player  string `json:"player"`
	Roll    int    `json:"roll"`
	Won     bool   `json:"won"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"`
}

// Ledger implements the economy commands over a LedgerStore.
type Ledger struct {
	store LedgerStore
	log   *zap.Logger

	mu   sync.Mutex
	roll func() int
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store LedgerStore, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store: store,
		log:   log,
		roll:  func() int { return rand.IntN(100) + 1 },
	}
}

// Balance returns the player's balance, opening an account at zero if the
// player does not have one yet.
func (l *Ledger) Balance(ctx context.Context, player, nick string) (*BalanceResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.store.Find(ctx, player)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &Account{Player: player, Nick: nick}
		if err := l.store.Insert(ctx, account); err != nil {
			return nil, err
		}
		l.log.Info("Opened account", zap.String("player", player))
		return &BalanceResult{Player: player, Created: true}, nil
	}
	return &BalanceResult{Player: player, Balance: account.Balance}, nil
}

// Grant adds amount to the player's balance. The player must already have
// an account; the caller is responsible for any permission check.
func (l *Ledger) Grant(ctx context.Context, player string, amount int64) (*GrantResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.store.Find(ctx, player)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNoAccount
	}

	account.Balance += amount
	if err := l.store.Update(ctx, account); err != nil {
		return nil, err
	}
	l.log.Info("Granted funds",
		zap.String("player", player),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance))
	return &GrantResult{Player: player, Amount: amount, Balance: account.Balance}, nil
}

// Gamble stakes amount on a 1-100 roll. A roll over 50 doubles the stake;
// anything else loses it. A non-positive amount is caught by the minimum-bet
// check, not rejected up front, so the guards keep their reply order.
func (l *Ledger) Gamble(ctx context.Context, player string, amount int64) (*GambleResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.store.Find(ctx, player)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNoAccount
	}
	if amount > account.Balance {
		return nil, ErrInsufficientFunds
	}
	if amount < MinBet {
		return nil, ErrBetTooSmall
	}

	num := l.roll()
	won := num > 50
	if won {
		account.Balance += amount
	} else {
		account.Balance -= amount
	}
	if err := l.store.Update(ctx, account); err != nil {
		return nil, err
	}
	l.log.Info("Resolved bet",
		zap.String("player", player),
		zap.Int("roll", num),
		zap.Bool("won", won),
		zap.Int64("balance", account.Balance))
	return &GambleResult{Player: player, Roll: num, Won: won, Amount: amount, Balance: account.Balance}, nil
}
