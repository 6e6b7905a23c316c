package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Empty database
// 1 - Catalog, overlay, queue and join tables
// 2 - Sync markers on entity tables, queue sequence
const currentSchemaVersion = 2

// Store provides durable storage for the comics catalog.
// SQLite with WAL mode is the default; PostgreSQL is available through pgx.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for updated_at and created_at
// columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	return OpenDialect(SQLite, path, opts...)
}

// OpenDialect opens a store on any supported engine. For Postgres the dsn
// is a connection string understood by pgx.
func OpenDialect(d Dialect, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The engine is the only writer; one connection keeps statement
	// ordering strict and avoids SQLITE_BUSY.
	if d.SingleConn {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := applyPragmas(db, d.Pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{db: db, dialect: d, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
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

// Dialect returns the engine dialect the store was opened with.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Query executes a query written with '?' placeholders.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// timestamp is the wall-clock time in the stored text form.
func (s *Store) timestamp() string {
	return formatTime(s.now())
}

func applyPragmas(db *sql.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and records the version.
// This function is idempotent.
func (s *Store) applySchema() error {
	schema := strings.ReplaceAll(schemaSQL, "{{SEQUENCE}}", s.dialect.Sequence)
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if s.dialect.Driver != SQLite.Driver {
		return nil
	}
	return runMigrations(s.db)
}

// runMigrations applies incremental schema migrations based on user_version.
// Version 0 is a database the schema above has just created.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if version == 1 {
		if err := migrateV2(db); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateV2 adds the sync markers and rebuilds the queue with a sequence
// column, keeping the old created_at order. Rows with a modified date
// count as synced.
func migrateV2(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // No-op if committed

	var stmts []string
	for _, k := range catalog.Kinds {
		ok, err := hasColumn(tx, k.Table(), "synced_at")
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		stmts = append(stmts,
			"ALTER TABLE "+k.Table()+" ADD COLUMN synced_at TEXT",
			"ALTER TABLE "+k.Table()+" ADD COLUMN attempted_at TEXT",
			"UPDATE "+k.Table()+" SET synced_at = COALESCE(updated_at, modified) WHERE modified IS NOT NULL",
		)
	}

	ok, err := hasColumn(tx, "scanned_codes", "seq")
	if err != nil {
		return err
	}
	if !ok {
		stmts = append(stmts,
			`CREATE TABLE scanned_codes_v2 (
				seq         `+SQLite.Sequence+`,
				prefix      TEXT NOT NULL,
				code        TEXT NOT NULL,
				scanned_on  TEXT NOT NULL,
				created_at  TEXT NOT NULL,
				UNIQUE (prefix, code, scanned_on)
			)`,
			`INSERT INTO scanned_codes_v2 (prefix, code, scanned_on, created_at)
				SELECT prefix, code, scanned_on, created_at FROM scanned_codes
				ORDER BY created_at, scanned_on, prefix, code`,
			"DROP TABLE scanned_codes",
			"ALTER TABLE scanned_codes_v2 RENAME TO scanned_codes",
		)
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.Join(strings.Fields(stmt)[:3], " "), err)
		}
	}
	return tx.Commit()
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
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
