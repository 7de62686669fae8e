package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/shoplist/internal/ids"
	"github.com/roach88/shoplist/internal/shop"
)

//go:embed schema_sqlite.sql
var sqliteSchemaSQL string

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Schema version tracking (SQLite: PRAGMA user_version, PostgreSQL: schema_version table):
// 0 - Initial schema (pre-migration)
// 1 - Added index on item_allocation(list_id, added)
const currentSchemaVersion = 1

// DefaultTimeout bounds every storage call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Store provides durable storage for lists, items and allocations.
type Store struct {
	db      *sqlx.DB
	sb      sq.StatementBuilderType
	timeout time.Duration
	logger  *slog.Logger
	ids     ids.Generator
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the per-call storage timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides the identifier generator (for testing).
func WithIDGenerator(g ids.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock overrides the wall clock used for created/added timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the database described by driver and dsn, applies pragmas
// (SQLite only) and the schema, and returns a ready Store.
//
// For SQLite, dsn is a file path; the file is created if it doesn't exist.
// This function is idempotent - safe to call multiple times on one database.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time, so limit connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return New(db, opts...), nil
}

// New wraps an already-initialised database handle. The placeholder style
// is chosen from db.DriverName(), so a handle wrapped with sqlx.NewDb for a
// mock driver gets "?" placeholders.
func New(db *sqlx.DB, opts ...Option) *Store {
	var placeholder sq.PlaceholderFormat = sq.Question
	if db.DriverName() == DriverPostgres {
		placeholder = sq.Dollar
	}

	s := &Store{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		ids:     ids.RandomGenerator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// run executes fn inside a single transaction bounded by the store timeout.
//
// The transaction commits when fn returns nil and is rolled back on every
// other path. Errors that are already *shop.Error pass through unchanged;
// anything else is logged once with op and returned as shop.KindStorage.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.storageError(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(ctx, tx); err != nil {
		var domainErr *shop.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return s.storageError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return s.storageError(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// storageError logs a backend failure and hides it behind shop.KindStorage.
func (s *Store) storageError(op string, err error) error {
	s.logger.Error("storage failure", "op", op, "error", err)
	return shop.Storage(op, err)
}

// timestamp returns the current time in UTC.
func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
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
func applySchema(db *sqlx.DB, driver string) error {
	schema := sqliteSchemaSQL
	if driver == DriverPostgres {
		schema = postgresSchemaSQL
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on the stored
// schema version.
func runMigrations(db *sqlx.DB, driver string) error {
	version, err := schemaVersion(db, driver)
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	return setSchemaVersion(db, driver, currentSchemaVersion)
}

func schemaVersion(db *sqlx.DB, driver string) (int, error) {
	query := "PRAGMA user_version"
	if driver == DriverPostgres {
		query = "SELECT COALESCE(MAX(version), 0) FROM schema_version"
	}
	var version int
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(db *sqlx.DB, driver string, version int) error {
	if driver != DriverPostgres {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("clear schema_version: %w", err)
	}
	if _, err := tx.Exec(tx.Rebind("INSERT INTO schema_version (version) VALUES (?)"), version); err != nil {
		return fmt.Errorf("insert schema_version: %w", err)
	}
	return tx.Commit()
}

// migrateToV1 adds the allocation lookup index for databases created before
// it was part of schema_sqlite.sql.
func migrateToV1(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_item_allocation_list
		ON item_allocation(list_id, added)
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

// notFoundOnNoRows maps sql.ErrNoRows to a shop.KindNotFound error.
func notFoundOnNoRows(err error, op, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return shop.NotFound(op, msg)
	}
	return err
}
