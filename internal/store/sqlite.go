package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on every open.
const schema = `
CREATE TABLE IF NOT EXISTS author (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT
);

CREATE TABLE IF NOT EXISTS cuisine (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT
);

CREATE TABLE IF NOT EXISTS category (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE CHECK (length(name) <= 80)
);

CREATE TABLE IF NOT EXISTS recipe (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    uid              TEXT NOT NULL UNIQUE,
    author_id        INTEGER REFERENCES author (id) ON DELETE SET NULL ON UPDATE CASCADE,
    cuisine_id       INTEGER REFERENCES cuisine (id) ON DELETE SET NULL ON UPDATE CASCADE,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    instructions     TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    yields           REAL NOT NULL DEFAULT 0 CHECK (yields >= 0),
    yield_unit       TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL DEFAULT '',
    rating           INTEGER CHECK (rating IS NULL OR (rating >= 0 AND rating <= 10)),
    preparation_time INTEGER CHECK (preparation_time IS NULL OR preparation_time >= 0),
    cooking_time     INTEGER CHECK (cooking_time IS NULL OR cooking_time >= 0),
    total_time       INTEGER CHECK (total_time IS NULL OR total_time >= 0),
    last_modified    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS recipe_title ON recipe (title);

CREATE TABLE IF NOT EXISTS category_list (
    recipe_id   INTEGER NOT NULL REFERENCES recipe (id) ON DELETE CASCADE ON UPDATE CASCADE,
    category_id INTEGER NOT NULL REFERENCES category (id) ON DELETE CASCADE ON UPDATE CASCADE,
    PRIMARY KEY (recipe_id, category_id)
);

CREATE TABLE IF NOT EXISTS ingredient (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT NOT NULL,
    is_group INTEGER NOT NULL DEFAULT 0,
    UNIQUE(name, is_group)
);

CREATE TABLE IF NOT EXISTS ingredient_unit (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    name   TEXT NOT NULL UNIQUE,
    type_  INTEGER NOT NULL CHECK (type_ >= 0 AND type_ <= 4),
    cldr   INTEGER NOT NULL DEFAULT 0,
    factor REAL
);

CREATE TABLE IF NOT EXISTS ingredient_list_entry (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    uid           TEXT NOT NULL UNIQUE,
    recipe_id     INTEGER NOT NULL REFERENCES recipe (id) ON DELETE CASCADE ON UPDATE CASCADE,
    amount        REAL CHECK ((amount > 0.0) AND (amount IS NOT NULL OR range_amount IS NULL)),
    range_amount  REAL CHECK (range_amount IS NULL OR (range_amount > 0.0 AND range_amount > amount)),
    unit_id       INTEGER NOT NULL REFERENCES ingredient_unit (id),
    name          TEXT NOT NULL DEFAULT '',
    ingredient_id INTEGER NOT NULL REFERENCES ingredient (id),
    optional      INTEGER NOT NULL DEFAULT 0,
    position      INTEGER NOT NULL CHECK ((position >= 0 AND position <= 99999999) OR position < 0),
    UNIQUE(recipe_id, position)
);

INSERT OR IGNORE INTO ingredient_unit (name, type_, cldr, factor) VALUES
    ('',                  0, 0, 1),
    ('mass-gram',         1, 1, 1),
    ('volume-milliliter', 2, 1, 1),
    ('group',             4, 0, NULL);
`

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is a SQLite-backed recipe store.
type Store struct {
	db    *sql.DB
	units *UnitCache
	log   *slog.Logger
}

// Open opens (or creates) the database at path, enables WAL mode, foreign
// keys and a busy timeout, and creates the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// One connection: SQLite has a single writer and the pragmas below are
	// per connection. A transaction therefore holds the whole store; code
	// running inside WithTx must only use its *Tx.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	s := &Store{
		db:    db,
		units: newUnitCache(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.loadBaseUnits(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	tx := &Tx{tx: sqlTx, store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	for _, u := range tx.newUnits {
		s.units.put(u)
	}
	return nil
}

// Units returns the store's unit cache.
func (s *Store) Units() *UnitCache {
	return s.units
}

// queryer is the subset of *sql.DB and *sql.Tx used by shared helpers.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timestampFormats lists the formats SQLite drivers may produce for
// CURRENT_TIMESTAMP.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
}

// parseTimestamp parses a SQLite timestamp string using known formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// nullSeconds stores a duration as whole seconds.
func nullSeconds(d *time.Duration) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d / time.Second), Valid: true}
}

func secondsPtr(n sql.NullInt64) *time.Duration {
	if !n.Valid {
		return nil
	}
	d := time.Duration(n.Int64) * time.Second
	return &d
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
