// Package store persists a project index as a SQLite snapshot so queries can
// run without rescanning the sources.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever schemaDDL changes incompatibly. Snapshots
// with another version are rejected by LoadIndex.
const SchemaVersion = "1"

// ErrNoSnapshot is returned by LoadIndex when the database holds no index.
var ErrNoSnapshot = errors.New("no index snapshot")

// Store is the SQLite data access layer for index snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Metadata returns the value stored under key, or "" when absent.
func (s *Store) Metadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata %s: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  parsed          BOOLEAN NOT NULL DEFAULT TRUE,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  address         TEXT NOT NULL,
  name            TEXT NOT NULL,
  start_line      INTEGER,
  end_line        INTEGER,
  source          TEXT,
  friends         TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS functions (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  module_address  TEXT NOT NULL,
  module_name     TEXT NOT NULL,
  name            TEXT NOT NULL,
  visibility      TEXT NOT NULL,
  modifiers       TEXT,
  type_params     TEXT,
  return_type     TEXT,
  acquires        TEXT,
  attributes      TEXT,
  start_line      INTEGER,
  end_line        INTEGER,
  source          TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS function_parameters (
  id              INTEGER PRIMARY KEY,
  function_id     INTEGER NOT NULL REFERENCES functions(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT,
  type_expr       TEXT
);

CREATE TABLE IF NOT EXISTS structs (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  name            TEXT NOT NULL,
  type_params     TEXT,
  abilities       TEXT,
  fields          TEXT,
  start_line      INTEGER,
  end_line        INTEGER,
  source          TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS constants (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  name            TEXT NOT NULL,
  type_expr       TEXT,
  value           TEXT,
  start_line      INTEGER,
  end_line        INTEGER,
  source          TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS uses (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  address         TEXT,
  module          TEXT NOT NULL,
  alias           TEXT,
  members         TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dependencies (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  version         TEXT,
  path            TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS addresses (
  name            TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  file            TEXT,
  message         TEXT,
  ordinal         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_modules_file ON modules(file_id);
CREATE INDEX IF NOT EXISTS idx_functions_file ON functions(file_id);
CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);
CREATE INDEX IF NOT EXISTS idx_function_params_function ON function_parameters(function_id);
CREATE INDEX IF NOT EXISTS idx_structs_module ON structs(module_id);
CREATE INDEX IF NOT EXISTS idx_constants_module ON constants(module_id);
CREATE INDEX IF NOT EXISTS idx_uses_module ON uses(module_id);
`

// tables in reverse-dependency order, used to clear a snapshot.
var tables = []string{
	"diagnostics", "addresses", "dependencies", "uses", "constants",
	"structs", "function_parameters", "functions", "modules", "files",
}
