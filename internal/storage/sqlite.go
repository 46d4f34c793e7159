package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend implements Backend on a single SQLite file.
// It is the default backend: one file per profile, like browser local storage.
type SQLiteBackend struct {
	db    *sqlx.DB
	table string // quoted identifier
}

// NewSQLiteBackend opens (creating if needed) the database file at path
func NewSQLiteBackend(ctx context.Context, path, table string) (*SQLiteBackend, error) {
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}

	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		slog.Debug("failed to set sqlite busy_timeout", "error", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		slog.Debug("failed to set sqlite journal_mode=WAL", "error", err)
	}

	b := &SQLiteBackend{db: db, table: pq.QuoteIdentifier(table)}
	if err := b.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return b, nil
}

// initializeSchema creates the key/value table if it doesn't exist
func (s *SQLiteBackend) initializeSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get retrieves a value by key
func (s *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces a value
func (s *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Remove deletes a key
func (s *SQLiteBackend) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table), key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Keys lists keys with the given prefix.
// SQLite's LIKE folds ASCII case, so the prefix is compared with substr instead.
func (s *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	query := fmt.Sprintf(`SELECT key FROM %s WHERE substr(key, 1, length(?)) = ? ORDER BY key`, s.table)
	if err := s.db.SelectContext(ctx, &keys, query, prefix, prefix); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Ping checks database connectivity
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
