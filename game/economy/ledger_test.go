package economy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(NewMemoryLedgerStore(), nil)
}

func fundedLedger(t *testing.T, player string, balance int64) *Ledger {
	t.Helper()
	ledger := newTestLedger(t)
	ctx := context.Background()
	if _, err := ledger.Balance(ctx, player, player); err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance > 0 {
		if _, err := ledger.Grant(ctx, player, balance); err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
	}
	return ledger
}

func TestLedger_Balance(t *testing.T) {
	ctx := context.Background()

	t.Run("first lookup opens the account", func(t *testing.T) {
		ledger := newTestLedger(t)
		result, err := ledger.Balance(ctx, "alice", "Alice")
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if !result.Created {
			t.Error("Expected account to be created")
		}
		if result.Balance != 0 {
			t.Errorf("Expected zero opening balance, got %d", result.Balance)
		}
	})

	t.Run("second lookup reports the balance", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 100)
		result, err := ledger.Balance(ctx, "alice", "Alice")
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if result.Created {
			t.Error("Expected existing account")
		}
		if result.Balance != 100 {
			t.Errorf("Expected balance 100, got %d", result.Balance)
		}
	})
}

func TestLedger_Grant(t *testing.T) {
	ctx := context.Background()

	t.Run("adds to an existing account", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 10)
		result, err := ledger.Grant(ctx, "alice", 25)
		if err != nil {
			t.Fatalf("Grant failed: %v", err)
		}
		if result.Balance != 35 {
			t.Errorf("Expected balance 35, got %d", result.Balance)
		}
	})

	t.Run("requires an account", func(t *testing.T) {
		ledger := newTestLedger(t)
		if _, err := ledger.Grant(ctx, "alice", 25); !errors.Is(err, ErrNoAccount) {
			t.Fatalf("Expected ErrNoAccount, got %v", err)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 10)
		for _, amount := range []int64{0, -5} {
			if _, err := ledger.Grant(ctx, "alice", amount); !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("Grant(%d) expected ErrInvalidAmount, got %v", amount, err)
			}
		}
	})
}

func TestLedger_Gamble(t *testing.T) {
	ctx := context.Background()

	t.Run("winning roll doubles the stake", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 100)
		ledger.roll = func() int { return 51 }

		result, err := ledger.Gamble(ctx, "alice", 20)
		if err != nil {
			t.Fatalf("Gamble failed: %v", err)
		}
		if !result.Won || result.Roll != 51 {
			t.Errorf("Expected a win on roll 51, got %+v", result)
		}
		if result.Balance != 120 {
			t.Errorf("Expected balance 120, got %d", result.Balance)
		}
	})

	t.Run("roll of fifty loses", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 100)
		ledger.roll = func() int { return 50 }

		result, err := ledger.Gamble(ctx, "alice", 20)
		if err != nil {
			t.Fatalf("Gamble failed: %v", err)
		}
		if result.Won {
			t.Error("Expected a loss on roll 50")
		}
		if result.Balance != 80 {
			t.Errorf("Expected balance 80, got %d", result.Balance)
		}
	})

	t.Run("cannot stake more than the balance", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 10)
		if _, err := ledger.Gamble(ctx, "alice", 11); !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("enforces the minimum bet", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 100)
		if _, err := ledger.Gamble(ctx, "alice", MinBet-1); !errors.Is(err, ErrBetTooSmall) {
			t.Fatalf("Expected ErrBetTooSmall, got %v", err)
		}
	})

	t.Run("non-positive stakes hit the minimum bet", func(t *testing.T) {
		ledger := fundedLedger(t, "alice", 100)
		for _, amount := range []int64{0, -5} {
			if _, err := ledger.Gamble(ctx, "alice", amount); !errors.Is(err, ErrBetTooSmall) {
				t.Fatalf("Gamble(%d) expected ErrBetTooSmall, got %v", amount, err)
			}
		}
		balance, err := ledger.Balance(ctx, "alice", "Alice")
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if balance.Balance != 100 {
			t.Errorf("Expected balance untouched at 100, got %d", balance.Balance)
		}
	})

	t.Run("requires an account", func(t *testing.T) {
		ledger := newTestLedger(t)
		if _, err := ledger.Gamble(ctx, "alice", 10); !errors.Is(err, ErrNoAccount) {
			t.Fatalf("Expected ErrNoAccount, got %v", err)
		}
	})
}

func TestSQLiteLedgerStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteLedger(filepath.Join(t.TempDir(), "economy.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteLedger failed: %v", err)
	}
	defer store.Close()

	found, err := store.Find(ctx, "alice")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found != nil {
		t.Fatalf("Expected no account, got %+v", found)
	}

	if err := store.Insert(ctx, &Account{Player: "alice", Nick: "Alice", Balance: 40}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	found, err = store.Find(ctx, "alice")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found == nil || found.Balance != 40 {
		t.Fatalf("Expected balance 40, got %+v", found)
	}

	found.Balance = 15
	if err := store.Update(ctx, found); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	found, _ = store.Find(ctx, "alice")
	if found.Balance != 15 {
		t.Errorf("Expected balance 15 after update, got %d", found.Balance)
	}
}
