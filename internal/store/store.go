package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on images.invoice_id
const currentSchemaVersion = 1

// Collection names one of the three record collections.
type Collection string

const (
	Customers Collection = "customers"
	Invoices  Collection = "invoices"
	Images    Collection = "images"
)

// Collections lists every record collection in replacement order.
var Collections = []Collection{Customers, Invoices, Images}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Customers, Invoices, Images:
		return true
	}
	return false
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides durable storage for ledgerbook records.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
	q  queryer
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// A missing directory or a file that is not a SQLite database yields a
// STORAGE_UNAVAILABLE error.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.CodeStorageUnavailable, "open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ledgererr.Wrap(ledgererr.CodeStorageUnavailable, "connect to database", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, ledgererr.Wrap(ledgererr.CodeStorageUnavailable, "apply pragmas", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, ledgererr.Wrap(ledgererr.CodeStorageUnavailable, "apply schema", err)
	}

	return &Store{db: db, q: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
// Calling WithTx on a store that is already transaction-bound runs fn
// inside the existing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}

// Clear removes every record in the given collection.
func (s *Store) Clear(ctx context.Context, c Collection) error {
	if !c.Valid() {
		return ledgererr.Newf(ledgererr.CodeInvalidInput, "clear", "unknown collection %q", c)
	}
	// Table names come from the closed Collection set above.
	if _, err := s.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c)); err != nil {
		return unavailable("clear "+string(c), err)
	}
	return nil
}

// Count returns the number of records in the given collection.
func (s *Store) Count(ctx context.Context, c Collection) (int, error) {
	if !c.Valid() {
		return 0, ledgererr.Newf(ledgererr.CodeInvalidInput, "count", "unknown collection %q", c)
	}
	var n int
	if err := s.q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c)).Scan(&n); err != nil {
		return 0, unavailable("count "+string(c), err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the image owner index used by cascade deletes.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_images_invoice
		ON images(invoice_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
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

func unavailable(op string, err error) error {
	return ledgererr.Wrap(ledgererr.CodeStorageUnavailable, op, err)
}

func notFound(op, kind, id string) error {
	return ledgererr.Newf(ledgererr.CodeNotFound, op, "%s %q not found", kind, id)
}
