package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS bypass_attempts (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	method     TEXT NOT NULL,
	attempted_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bypass_attempts_session
	ON bypass_attempts (session_id);`

// SQLiteSink persists bypass attempts to an append-only SQLite table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the audit database at the given path.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection serializes
	// access and avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// LogBypassAttempt appends one attempt. Records are never updated or
// deleted.
func (sink *SQLiteSink) LogBypassAttempt(ctx context.Context, attempt Attempt) error {
	// ulid.Make is safe for concurrent use; submissions arrive from
	// background goroutines.
	id := ulid.Make().String()
	_, err := sink.db.ExecContext(ctx,
		`INSERT INTO bypass_attempts (id, session_id, method, attempted_at) VALUES (?, ?, ?, ?)`,
		id, attempt.SessionID, attempt.Method, attempt.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert bypass attempt: %w", err)
	}
	return nil
}

// AttemptsForSession returns the attempts recorded for one session in
// insertion order.
func (sink *SQLiteSink) AttemptsForSession(ctx context.Context, sessionID string) ([]Attempt, error) {
	rows, err := sink.db.QueryContext(ctx,
		`SELECT session_id, method, attempted_at FROM bypass_attempts WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query bypass attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var attempt Attempt
		if err := rows.Scan(&attempt.SessionID, &attempt.Method, &attempt.Timestamp); err != nil {
			return nil, fmt.Errorf("scan bypass attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// Close closes the underlying database.
func (sink *SQLiteSink) Close() error {
	return sink.db.Close()
}
