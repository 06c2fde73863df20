// Package inventory implements the write-behind inventory cache: a local
// SQLite mirror that absorbs every read and write instantly, plus the sync
// engine that reconciles it with the durable store on the shared mount in
// the background. When caching is disabled the same façade degrades to
// direct remote access so callers never branch.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/config"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/models"
	"github.com/DustanBaker/The-Uplink/internal/store/durable"
	"github.com/DustanBaker/The-Uplink/internal/store/localcache"
)

// Cache is the inventory façade the UI talks to. One instance serves every
// configured project.
type Cache struct {
	remote  *durable.Store
	log     logging.Logger
	enabled bool
	window  int

	dbs map[string]*localcache.DB
}

// NewCache opens the local cache file for every configured project. With
// caching disabled no local files are touched and every call goes straight
// to the durable store.
func NewCache(ctx context.Context, cfg *config.Config, remote *durable.Store, log logging.Logger) (*Cache, error) {
	c := &Cache{
		remote:  remote,
		log:     log.With("component", "inventory_cache"),
		enabled: cfg.InventoryCacheEnabled,
		window:  cfg.ArchiveWindow,
		dbs:     make(map[string]*localcache.DB),
	}
	if !c.enabled {
		c.log.Warn(ctx, "inventory cache disabled, operating directly on the durable store")
		return c, nil
	}

	for _, project := range cfg.Projects {
		if !durable.ValidProject(project) {
			c.Close()
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownProject, project)
		}
		db, err := localcache.OpenProject(ctx, cfg.LocalCacheDir, project, cfg.LocalBusyTimeout.Milliseconds())
		if err != nil {
			c.Close()
			return nil, err
		}
		c.dbs[project] = db
	}
	return c, nil
}

func (c *Cache) Close() {
	for _, db := range c.dbs {
		_ = db.Close()
	}
}

func (c *Cache) db(project string) (*localcache.DB, error) {
	db, ok := c.dbs[project]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownProject, project)
	}
	return db, nil
}

// Add stores a new inventory record. With caching on, the write lands
// locally as pending and returns immediately; the sync engine pushes it
// later. Duplicate serial numbers are rejected against the local mirror
// only; the remote unique index is the final arbiter at push time.
func (c *Cache) Add(ctx context.Context, project string, rec *models.Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastModified = now

	if !c.enabled {
		remoteID, err := c.remote.UpsertBySerial(ctx, project, *rec)
		if err != nil {
			return err
		}
		rec.ID = remoteID
		rec.RemoteID = &remoteID
		rec.SyncStatus = models.SyncSynced
		return nil
	}

	db, err := c.db(project)
	if err != nil {
		return err
	}
	err = db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewInventoryRepo(tx).Insert(ctx, rec)
	})
	if errors.Is(err, common.ErrDuplicate) {
		return common.ErrDuplicate
	}
	return err
}

// Update edits an existing record and marks it pending for re-push.
func (c *Cache) Update(ctx context.Context, project string, id int64, rec models.Record) error {
	rec.LastModified = time.Now().UTC()

	if !c.enabled {
		// direct mode: id is the remote row id and upsert-by-serial applies
		// the edit in place
		_, err := c.remote.UpsertBySerial(ctx, project, rec)
		return err
	}

	db, err := c.db(project)
	if err != nil {
		return err
	}
	return db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewInventoryRepo(tx).Update(ctx, id, rec)
	})
}

// Delete removes a record locally. If the row had already synced, a
// tombstone is written so the next cycle replays the delete against the
// durable store; rows that never synced just vanish.
func (c *Cache) Delete(ctx context.Context, project string, id int64) error {
	if !c.enabled {
		return c.remote.DeleteInventoryByID(ctx, project, id)
	}

	db, err := c.db(project)
	if err != nil {
		return err
	}
	return db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		remoteID, err := localcache.NewInventoryRepo(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if remoteID == nil {
			return nil
		}
		key := localcache.MetaDeletePrefix + strconv.FormatInt(*remoteID, 10)
		return localcache.NewMetadataRepo(tx).Set(ctx, key, strconv.FormatInt(*remoteID, 10))
	})
}

// List returns active records newest first. Reads never touch the mount
// when caching is on.
func (c *Cache) List(ctx context.Context, project string, limit, offset int) ([]models.Record, error) {
	if !c.enabled {
		recs, err := c.remote.GetAllInventory(ctx, project)
		if err != nil {
			return nil, err
		}
		if offset > 0 {
			if offset >= len(recs) {
				return nil, nil
			}
			recs = recs[offset:]
		}
		if limit > 0 && limit < len(recs) {
			recs = recs[:limit]
		}
		return recs, nil
	}

	db, err := c.db(project)
	if err != nil {
		return nil, err
	}
	return localcache.NewInventoryRepo(db.Reader()).List(ctx, limit, offset)
}

func (c *Cache) Count(ctx context.Context, project string) (int, error) {
	if !c.enabled {
		recs, err := c.remote.GetAllInventory(ctx, project)
		if err != nil {
			return 0, err
		}
		return len(recs), nil
	}

	db, err := c.db(project)
	if err != nil {
		return 0, err
	}
	return localcache.NewInventoryRepo(db.Reader()).Count(ctx)
}

// PendingCount reports how many local rows still await a push. Direct mode
// has no backlog by construction.
func (c *Cache) PendingCount(ctx context.Context, project string) (int, error) {
	if !c.enabled {
		return 0, nil
	}
	db, err := c.db(project)
	if err != nil {
		return 0, err
	}
	pending, err := localcache.NewInventoryRepo(db.Reader()).PendingAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// ImportedList returns the archive history view: the locally mirrored
// recent window when caching is on, the remote archive otherwise.
func (c *Cache) ImportedList(ctx context.Context, project string, limit int) ([]models.ArchivedRecord, error) {
	if !c.enabled {
		return c.remote.ImportedRecent(ctx, project, limit)
	}
	db, err := c.db(project)
	if err != nil {
		return nil, err
	}
	return localcache.NewImportedRepo(db.Reader()).List(ctx, limit)
}

// ImportedCount reports the authoritative archive size: the count captured
// verbatim from the remote on the last pull, never the length of the local
// window.
func (c *Cache) ImportedCount(ctx context.Context, project string) (int, error) {
	if !c.enabled {
		return c.remote.ImportedCount(ctx, project)
	}
	db, err := c.db(project)
	if err != nil {
		return 0, err
	}
	v, err := localcache.NewMetadataRepo(db.Reader()).Get(ctx, localcache.MetaImportedCount)
	if errors.Is(err, common.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

// Users lists the shared user table. The user list is small and changes
// rarely, so it always reads the durable store directly.
func (c *Cache) Users(ctx context.Context) ([]models.User, error) {
	return c.remote.GetAllUsers(ctx)
}
