// Package store persists indexed signature databases in SQLite.
//
// Each [Store.Save] records a run: one snapshot of a corpus with its
// modules, methods, constants and precomputed dispatch chains. Runs are
// immutable; loading a run restores the exact database that was saved, and
// [Store.LookupMethod] answers inherited lookups with a single query over
// the stored chains.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/stubdex/pkg/errors"
)

// Store is a SQLite-backed run store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create directory for %s", path)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", path)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "initialize schema")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ruby_version TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		files_json TEXT NOT NULL,
		duplicates_json TEXT,
		conflicts_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS modules (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		superclass TEXT,
		doc TEXT,
		includes_json TEXT,
		extends_json TEXT,
		prepends_json TEXT,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS module_files (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		module TEXT NOT NULL,
		position INTEGER NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		PRIMARY KEY (run_id, module, position)
	);
	CREATE INDEX IF NOT EXISTS idx_module_files_file ON module_files(run_id, file);

	-- Dispatch chains: where a lookup on module visits, in order.
	CREATE TABLE IF NOT EXISTS ancestry (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		module TEXT NOT NULL,
		singleton INTEGER NOT NULL,
		position INTEGER NOT NULL,
		owner TEXT NOT NULL,
		owner_singleton INTEGER NOT NULL,
		PRIMARY KEY (run_id, module, singleton, position)
	);

	CREATE TABLE IF NOT EXISTS methods (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		module TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		singleton INTEGER NOT NULL,
		visibility TEXT NOT NULL,
		params_json TEXT,
		doc TEXT,
		alias_of TEXT,
		attribute INTEGER NOT NULL DEFAULT 0,
		has_body INTEGER NOT NULL DEFAULT 0,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		PRIMARY KEY (run_id, module, position)
	);
	CREATE INDEX IF NOT EXISTS idx_methods_name ON methods(run_id, module, name, singleton);

	CREATE TABLE IF NOT EXISTS constants (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		module TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		doc TEXT,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		PRIMARY KEY (run_id, module, position)
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
