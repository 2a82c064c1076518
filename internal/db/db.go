package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store executes parameterized statements against the row store and
// returns a row, all rows, or nothing. It is satisfied by both the open
// database and a transaction in flight, so repository code written
// against it composes under WithTx.
type Store interface {
	Run(ctx context.Context, query string, args ...any) (sql.Result, error)
	Get(ctx context.Context, query string, args ...any) *sql.Row
	All(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// DefaultDBPath returns the default database path (~/.ferrytask/tasks.db)
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ferrytask", "tasks.db"), nil
}

// Open opens or creates the SQLite database
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable foreign keys and wait out writer contention instead of
	// failing with SQLITE_BUSY
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{DB: sqlDB}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// OpenDefault opens the database at the default path
func OpenDefault() (*DB, error) {
	path, err := DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Run executes a statement that returns nothing
func (d *DB) Run(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.ExecContext(ctx, query, args...)
}

// Get executes a query expected to return a single row
func (d *DB) Get(ctx context.Context, query string, args ...any) *sql.Row {
	return d.QueryRowContext(ctx, query, args...)
}

// All executes a query returning every matching row
func (d *DB) All(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.QueryContext(ctx, query, args...)
}

// WithTx runs fn inside a single transaction. The Store handed to fn is
// backed by the transaction, so a row mutation and its sync intent can
// commit or roll back together.
func (d *DB) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(txStore{tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (t txStore) Run(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t txStore) Get(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t txStore) All(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}
