package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath is the SQLite path for an in-memory database.
const MemoryPath = ":memory:"

// Store is the relational store backing one allocation session.
// Uses SQLite over a single connection.
type Store struct {
	conn
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// An empty path opens an in-memory database.
//
// The database is configured with:
//   - one open connection (in-memory databases are per connection)
//   - WAL mode and NORMAL synchronous for file databases
//   - 5-second busy timeout
func Open(path string) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// An in-memory database lives and dies with its connection, so the
	// pool must never open a second one or close the idle one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return New(db), nil
}

// New wraps an existing database handle. The caller keeps responsibility
// for configuring the pool; Close closes db.
func New(db *sql.DB) *Store {
	return &Store{conn: conn{q: db}, db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx runs fn inside a transaction. If fn returns an error or the commit
// fails, every statement fn executed is rolled back.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{conn: conn{q: sqlTx}}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateTable creates name from t and loads its rows in one transaction.
// Fails with ErrUnrecognizedColumnType before touching the database when a
// column's values cannot be mapped to a storage type.
func (s *Store) CreateTable(ctx context.Context, name string, t *Table) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.CreateTable(ctx, name, t)
	})
}

// Tx is a store transaction. It exposes the same statement helpers as Store.
type Tx struct {
	conn
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, inMemory bool) error {
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if !inMemory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
