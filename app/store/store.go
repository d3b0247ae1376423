// Package store provides the transactional SQLite engine backing the offline
// cache. It owns the database file, creates the schema on first use and
// exposes scoped read and write transactions.
package store

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// Store wraps a single SQLite database with the job cache and pending swipe
// tables. Exactly one Store may own a database file at a time; ownership is
// enforced with a lock file next to the database.
type Store struct {
	db  *sqlx.DB
	flk *flock.Flock
}

// Open creates or opens the database at path, acquires the ownership lock
// and makes sure the schema exists. Schema creation is idempotent.
func Open(path string) (*Store, error) {
	flk := flock.New(path + ".lock")
	locked, err := flk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("database %s already in use by another process", path)
	}

	// modernc sqlite DSN, busy_timeout guards against transient lock errors
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		_ = flk.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite wants a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		_ = flk.Unlock()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db, flk: flk}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		_ = flk.Unlock()
		return nil, err
	}
	log.Printf("[DEBUG] store opened at %s", path)
	return s, nil
}

func (s *Store) createSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS job_cache (
			id TEXT PRIMARY KEY,
			title TEXT,
			company TEXT,
			location TEXT NULL,
			snippet TEXT NULL,
			score REAL,
			apply_url TEXT NULL,
			timestamp REAL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_swipe (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			direction TEXT
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// RunRead executes fn inside a transaction used only for reading. The
// transaction is rolled back on return, releasing locks without persisting
// anything fn may have done.
func (s *Store) RunRead(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// RunWrite executes fn inside a transaction and commits it if fn returns nil.
// All statements issued by fn commit or roll back together, so a reader can
// never observe a partially applied write.
func (s *Store) RunWrite(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database and releases the ownership lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if unlockErr := s.flk.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("failed to release lock: %w", unlockErr)
	}
	return err
}
