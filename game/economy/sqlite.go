package economy

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const accountSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	player  TEXT PRIMARY KEY,
	nick    TEXT NOT NULL DEFAULT '',
	balance INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteLedgerStore persists accounts in SQLite.
type SQLiteLedgerStore struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (or creates) a SQLite ledger at path.
func OpenSQLiteLedger(path string) (*SQLiteLedgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite ledger path is empty")
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	store, err := NewSQLiteLedgerFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteLedgerFromDB builds a ledger store on an existing database
// handle so the ledger can share a file with the session store.
func NewSQLiteLedgerFromDB(db *sql.DB) (*SQLiteLedgerStore, error) {
	if _, err := db.Exec(accountSchema); err != nil {
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	return &SQLiteLedgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedgerStore) Find(ctx context.Context, player string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player, nick, balance FROM accounts WHERE player = ?`, player)

	var account Account
	if err := row.Scan(&account.Player, &account.Nick, &account.Balance); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

func (s *SQLiteLedgerStore) Insert(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (player, nick, balance) VALUES (?, ?, ?)`,
		account.Player, account.Nick, account.Balance)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *SQLiteLedgerStore) Update(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET nick = ?, balance = ? WHERE player = ?`,
		account.Nick, account.Balance, account.Player)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}
