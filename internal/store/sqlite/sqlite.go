package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS connections (
	instance   TEXT PRIMARY KEY,
	count      INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddConnection increments the counter for instance and returns the new value.
func (s *SQLiteStore) AddConnection(ctx context.Context, instance string) (int64, error) {
	query := `
		INSERT INTO connections (instance, count, updated_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(instance) DO UPDATE SET
			count = count + 1,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, instance); err != nil {
		return 0, fmt.Errorf("add connection: %w", err)
	}
	return s.Connections(ctx, instance)
}

// RemoveConnection decrements the counter for instance, never below zero.
func (s *SQLiteStore) RemoveConnection(ctx context.Context, instance string) (int64, error) {
	query := `
		UPDATE connections
		SET count = MAX(count - 1, 0), updated_at = CURRENT_TIMESTAMP
		WHERE instance = ?
	`
	if _, err := s.db.ExecContext(ctx, query, instance); err != nil {
		return 0, fmt.Errorf("remove connection: %w", err)
	}
	return s.Connections(ctx, instance)
}

// Connections returns the current counter for instance.
func (s *SQLiteStore) Connections(ctx context.Context, instance string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM connections WHERE instance = ?`, instance,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query connections: %w", err)
	}
	return count, nil
}
