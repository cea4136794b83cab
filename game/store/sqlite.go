package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chatplay/tictacbot/game/board"
	"github.com/chatplay/tictacbot/game/service"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session_seq (
	id INTEGER PRIMARY KEY AUTOINCREMENT
);
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY,
	creator TEXT NOT NULL,
	opponent TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	board TEXT NOT NULL,
	turn TEXT NOT NULL,
	render_ref TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_creator ON sessions(creator);
CREATE INDEX IF NOT EXISTS idx_sessions_opponent ON sessions(opponent);
`

// SQLiteStore persists sessions in SQLite, the backend the bot originally
// shipped with.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite session store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an existing handle, applying the schema.
// Used when the session store and the economy ledger share one database.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sessionSchema); err != nil {
		return nil, fmt.Errorf("apply session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components sharing the database.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// NextID allocates a fresh id from the sequence table.
func (s *SQLiteStore) NextID(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO session_seq DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read allocated id: %w", err)
	}
	return id, nil
}

const sessionColumns = `id, creator, opponent, state, board, turn, render_ref, channel, created_at, updated_at`

// FindActiveSessionFor returns the non-finished session including the player.
func (s *SQLiteStore) FindActiveSessionFor(ctx context.Context, playerID string) (*service.GameSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE (creator = ? OR opponent = ?) AND state != ? LIMIT 1`,
		playerID, playerID, service.StateFinished)
	return scanSession(row)
}

// FindByID returns the session with the given id, or nil.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*service.GameSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// Insert stores a new session row.
func (s *SQLiteStore) Insert(ctx context.Context, sess *service.GameSession) error {
	boardJSON, err := json.Marshal(sess.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Creator, sess.Opponent, string(sess.State), string(boardJSON),
		sess.Turn.String(), sess.RenderRef, sess.Channel,
		sess.CreatedAt.UTC().UnixMilli(), sess.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update replaces the full aggregate, failing if the row is gone.
func (s *SQLiteStore) Update(ctx context.Context, sess *service.GameSession) error {
	boardJSON, err := json.Marshal(sess.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET creator = ?, opponent = ?, state = ?, board = ?,
			turn = ?, render_ref = ?, channel = ?, updated_at = ?
		 WHERE id = ?`,
		sess.Creator, sess.Opponent, string(sess.State), string(boardJSON),
		sess.Turn.String(), sess.RenderRef, sess.Channel,
		sess.UpdatedAt.UTC().UnixMilli(), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		return service.ErrNotFound
	}
	return nil
}

// Delete removes the session row if it exists.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns all stored sessions.
func (s *SQLiteStore) List(ctx context.Context) ([]*service.GameSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []*service.GameSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return result, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*service.GameSession, error) {
	var (
		sess      service.GameSession
		state     string
		boardJSON string
		turn      string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&sess.ID, &sess.Creator, &sess.Opponent, &state, &boardJSON,
		&turn, &sess.RenderRef, &sess.Channel, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.State = service.SessionState(state)
	if err := json.Unmarshal([]byte(boardJSON), &sess.Board); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	if sess.Turn, err = board.ParseMark(turn); err != nil {
		return nil, fmt.Errorf("parse turn: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()
	sess.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &sess, nil
}
