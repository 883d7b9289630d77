// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state persists the set of opportunity ids already notified. The
// store is the sole gate for "new" classification: an id marked seen here is
// never notified again, across any number of later runs.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed seen-id set. MarkSeen is durable on return, so
// a crash immediately afterwards cannot cause a repeat notification, and
// SQLite's file locking keeps two concurrent invocations from interleaving
// writes.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the seen-id database at path. A missing file is
// first-run semantics; a corrupt file is moved aside to <path>.corrupt and
// replaced with a fresh, empty store rather than failing the run.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := open(path)
	if err == nil {
		return &Store{db: db, path: path}, nil
	}
	if !isCorrupt(err) {
		return nil, err
	}

	// Corrupt state file: preserve it for diagnostics and start fresh.
	if mvErr := os.Rename(path, path+".corrupt"); mvErr != nil {
		return nil, fmt.Errorf("moving corrupt state file aside: %w", mvErr)
	}
	db, err = open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS seen (
		id TEXT PRIMARY KEY,
		notified_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

func isCorrupt(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not a database")
}

// Contains reports whether id has already been notified.
func (s *Store) Contains(id string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM seen WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying seen set: %w", err)
	}
	return true, nil
}

// MarkSeen records id as notified. The write is committed before MarkSeen
// returns; marking an already-seen id is a no-op.
func (s *Store) MarkSeen(id string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO seen (id, notified_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("marking %s seen: %w", id, err)
	}
	return nil
}

// Count returns the number of seen ids.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM seen`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting seen set: %w", err)
	}
	return n, nil
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
