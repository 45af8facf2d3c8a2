// Package history persists conversation turns in SQLite and serves the
// bounded recent-history window used as model context.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stupiduntilnot/omnichat/internal/chat"
)

// DefaultSession is the conversation key used when the caller never names one.
const DefaultSession = "default"

// StorageError marks persistence-layer I/O failures so callers can tell them
// apart from provider errors. Fatal to the current call, not the process.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Turn is one persisted conversation turn. Seq is assigned by SQLite at
// insertion time and orders the conversation.
type Turn struct {
	Seq       int64  `json:"seq"`
	Session   string `json:"session"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Store is a SQLite-backed conversation history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store's database at the given path, ensuring
// that the parent directory exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr(fmt.Sprintf("create db directory %s", dir), err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, storageErr(fmt.Sprintf("open db at %s", path), err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr(fmt.Sprintf("ping db at %s", path), err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without write access, for
// inspection tooling.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro&_journal_mode=WAL")
	if err != nil {
		return nil, storageErr(fmt.Sprintf("open db at %s", path), err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr(fmt.Sprintf("ping db at %s", path), err)
	}
	return &Store{db: db}, nil
}

// Init creates the messages table and its index.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL DEFAULT 'default',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session, id);
	`)
	if err != nil {
		return storageErr("init schema", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a new turn and returns its assigned sequence number.
func (s *Store) Append(session, role, content string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO messages (session, role, content) VALUES (?, ?, ?)",
		session, role, content,
	)
	if err != nil {
		return 0, storageErr("insert turn", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read turn seq", err)
	}
	return seq, nil
}

// Recent returns the last `limit` turns of the session in chronological
// order (oldest first). Fewer than `limit` turns returns all of them;
// limit <= 0 means no memory and returns an empty window.
func (s *Store) Recent(session string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return []chat.Message{}, nil
	}

	rows, err := s.db.Query(
		"SELECT role, content FROM messages WHERE session = ? ORDER BY id DESC LIMIT ?",
		session, limit,
	)
	if err != nil {
		return nil, storageErr("query recent turns", err)
	}
	defer rows.Close()

	var window []chat.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, storageErr("scan turn", err)
		}
		window = append(window, chat.Message{Role: role, Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate turns", err)
	}

	// The query walks newest-first; flip back to conversational order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window, nil
}

// Count returns the number of turns stored for the session.
func (s *Store) Count(session string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE session = ?", session).Scan(&count)
	if err != nil {
		return 0, storageErr("count turns", err)
	}
	return count, nil
}

// Transcript returns full turn rows in chronological order, for inspection.
// limit <= 0 returns the whole session.
func (s *Store) Transcript(session string, limit int) ([]Turn, error) {
	query := "SELECT id, session, role, content, created_at FROM messages WHERE session = ? ORDER BY id ASC"
	args := []any{session}
	if limit > 0 {
		query = `SELECT id, session, role, content, created_at FROM (
			SELECT id, session, role, content, created_at FROM messages
			WHERE session = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query transcript", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.Session, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, storageErr("scan transcript turn", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transcript", err)
	}
	return turns, nil
}

// Sessions returns the distinct session keys present in the store.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT session FROM messages ORDER BY session")
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, storageErr("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}
	return sessions, nil
}

// Clear deletes every turn of the session.
func (s *Store) Clear(session string) error {
	if _, err := s.db.Exec("DELETE FROM messages WHERE session = ?", session); err != nil {
		return storageErr("clear session", err)
	}
	return nil
}

// ClearRole deletes the session's turns with the given role and reports how
// many were removed.
func (s *Store) ClearRole(session, role string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM messages WHERE session = ? AND role = ?", session, role)
	if err != nil {
		return 0, storageErr("clear role", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("count cleared turns", err)
	}
	return n, nil
}

// DeleteTurn removes a single turn by sequence number and reports whether a
// row existed.
func (s *Store) DeleteTurn(seq int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM messages WHERE id = ?", seq)
	if err != nil {
		return false, storageErr("delete turn", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("count deleted turns", err)
	}
	return n > 0, nil
}
