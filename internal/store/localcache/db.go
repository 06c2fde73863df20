// Package localcache implements the per-node persistent mirror: a fast,
// always-available SQLite database per project for inventory (with sync
// bookkeeping columns) plus one shared file for the reference-data (SKU)
// cache. Reads never touch the network; the sync engine reconciles these
// files with the durable store in the background.
package localcache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/store/localcache/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// DB is the handle for one project's inventory cache file. Mutations run
// through Write, which serializes whole write sequences under one lock and a
// transaction so a reader can never observe a half-applied change; reads go
// straight to the pooled handle and tolerate running beside a write.
type DB struct {
	sqldb *sql.DB
	mu    sync.Mutex
}

func dsn(path string, busyMillis int64) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyMillis)
}

func runMigrations(ctx context.Context, db *sql.DB, dir string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, dir)
}

// OpenProject opens (creating if needed) the inventory cache file for one
// project and brings its schema up to date.
func OpenProject(ctx context.Context, cacheDir, project string, busyMillis int64) (*DB, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := filepath.Join(cacheDir, project+"_inventory_cache.db")

	sqldb, err := sql.Open("sqlite", dsn(path, busyMillis))
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory cache: %w", err)
	}
	if err := runMigrations(ctx, sqldb, "inventory"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to migrate inventory cache: %w", err)
	}
	return &DB{sqldb: sqldb}, nil
}

func (d *DB) Close() error {
	return d.sqldb.Close()
}

// Write runs fn inside a transaction, holding the cache write lock for the
// whole open-mutate-commit sequence.
func (d *DB) Write(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return dbx.WithTx(ctx, d.sqldb, nil, fn)
}

// Reader returns the lock-free handle used by read-only operations.
func (d *DB) Reader() dbx.DBTX {
	return d.sqldb
}

// SKUDB is the handle for the shared SKU cache file.
type SKUDB struct {
	sqldb *sql.DB
	mu    sync.Mutex
}

// OpenSKU opens (creating if needed) the SKU cache file and brings its
// schema up to date. All projects share this one file, partitioned by the
// project column.
func OpenSKU(ctx context.Context, cacheDir string, busyMillis int64) (*SKUDB, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := filepath.Join(cacheDir, "sku_cache.db")

	sqldb, err := sql.Open("sqlite", dsn(path, busyMillis))
	if err != nil {
		return nil, fmt.Errorf("failed to open SKU cache: %w", err)
	}
	if err := runMigrations(ctx, sqldb, "sku"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to migrate SKU cache: %w", err)
	}
	return &SKUDB{sqldb: sqldb}, nil
}

func (d *SKUDB) Close() error {
	return d.sqldb.Close()
}

func (d *SKUDB) Write(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return dbx.WithTx(ctx, d.sqldb, nil, fn)
}

func (d *SKUDB) Reader() dbx.DBTX {
	return d.sqldb
}
