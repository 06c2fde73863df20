// Package durable implements repositories over the authoritative SQLite
// files on the shared network mount: users.db (users and approved SKU
// tables) plus one <project>_active_inventory.db /
// <project>_imported_inventory.db pair per project namespace.
//
// Every operation is wrapped in a bounded retry (see retryx): the mount is
// slow and sometimes unavailable, and lock contention between stations is
// routine. Callers treat a returned error as "the store is unreachable right
// now", not as a fatal condition.
package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/retryx"

	_ "modernc.org/sqlite"
)

// projectRe restricts project namespaces to names that are safe to embed in
// file names and table identifiers.
var projectRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store hands out lazily opened database handles for the shared drive files
// and runs schema DDL the first time each file is touched. Handles are pooled
// per file and shared by all repositories.
type Store struct {
	dir   string
	busy  time.Duration
	retry retryx.Config
	log   logging.Logger

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewStore(dir string, busy time.Duration, retry retryx.Config, log logging.Logger) *Store {
	return &Store{
		dir:   dir,
		busy:  busy,
		retry: retry,
		log:   log,
		dbs:   make(map[string]*sql.DB),
	}
}

// ValidProject reports whether name is usable as a project namespace.
func ValidProject(name string) bool {
	return projectRe.MatchString(name)
}

// Close closes every opened handle. Safe to call once at shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for path, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, path)
	}
	return firstErr
}

func (s *Store) dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, s.busy.Milliseconds())
}

// open returns the pooled handle for path, opening it and running ddl on
// first use. The DDL is CREATE TABLE IF NOT EXISTS: any node must be able to
// create a missing file on the share without a coordinated migration step.
// The directory itself is never created here; it is a mount point, and a
// missing mount must surface as an error, not a fresh empty store.
func (s *Store) open(ctx context.Context, path string, ddl []string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[path]; ok {
		return db, nil
	}

	db, err := sql.Open("sqlite", s.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to init schema in %s: %w", filepath.Base(path), err)
		}
	}

	s.dbs[path] = db
	return db, nil
}

func (s *Store) usersPath() string {
	return filepath.Join(s.dir, "users.db")
}

func (s *Store) activePath(project string) string {
	return filepath.Join(s.dir, project+"_active_inventory.db")
}

func (s *Store) importedPath(project string) string {
	return filepath.Join(s.dir, project+"_imported_inventory.db")
}

func (s *Store) activeDB(ctx context.Context, project string) (*sql.DB, error) {
	if !ValidProject(project) {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownProject, project)
	}
	return s.open(ctx, s.activePath(project), []string{`
		CREATE TABLE IF NOT EXISTS inventory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_sku TEXT NOT NULL,
			serial_number TEXT NOT NULL UNIQUE,
			lpn TEXT NOT NULL,
			location TEXT DEFAULT '',
			repair_state TEXT NOT NULL,
			entered_by TEXT NOT NULL,
			created_at TEXT NOT NULL,
			order_number TEXT DEFAULT ''
		)`,
	})
}

func (s *Store) importedDB(ctx context.Context, project string) (*sql.DB, error) {
	if !ValidProject(project) {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownProject, project)
	}
	return s.open(ctx, s.importedPath(project), []string{`
		CREATE TABLE IF NOT EXISTS imported_inventory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_sku TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			lpn TEXT NOT NULL,
			location TEXT DEFAULT '',
			repair_state TEXT NOT NULL,
			entered_by TEXT NOT NULL,
			created_at TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			order_number TEXT DEFAULT ''
		)`,
	})
}

func (s *Store) usersDB(ctx context.Context) (*sql.DB, error) {
	return s.open(ctx, s.usersPath(), []string{`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	})
}

// skuTable returns the per-project approved SKU table name, creating the
// table if needed. SKU tables live in users.db alongside the user list.
func (s *Store) skuTable(ctx context.Context, project string) (*sql.DB, string, error) {
	if !ValidProject(project) {
		return nil, "", fmt.Errorf("%w: %q", common.ErrUnknownProject, project)
	}
	db, err := s.usersDB(ctx)
	if err != nil {
		return nil, "", err
	}
	table := "approved_skus_" + project
	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sku TEXT NOT NULL UNIQUE,
			description TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`, table))
	if err != nil {
		return nil, "", fmt.Errorf("failed to init %s: %w", table, err)
	}
	return db, table, nil
}

// do wraps a store operation in the configured retry policy. An error that
// survives the retry budget is marked common.ErrStoreUnavailable so callers
// can distinguish "the mount is gone" from domain outcomes.
func (s *Store) do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := retryx.Do(ctx, s.retry, fn)
	if err == nil || errors.Is(err, common.ErrDuplicate) ||
		errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrUnknownProject) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
