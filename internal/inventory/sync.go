package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/models"
	"github.com/DustanBaker/The-Uplink/internal/store/localcache"
)

// SyncProject runs one full reconciliation cycle for a project: replay
// pending deletes, push pending rows, pull the active set, pull the archive
// window. Phases are independent; a failure in one is logged and the next
// still runs, so a flaky mount degrades to partial progress instead of none.
func (c *Cache) SyncProject(ctx context.Context, project string) error {
	if !c.enabled {
		return common.ErrCacheDisabled
	}
	db, err := c.db(project)
	if err != nil {
		return err
	}
	log := c.log.With("project", project)

	var firstErr error
	if err := c.pushPhase(ctx, db, project, log); err != nil {
		log.Warn(ctx, "push phase failed", "error", err)
		firstErr = err
	}
	if err := c.pullActive(ctx, db, project, log); err != nil {
		log.Warn(ctx, "pull-active phase failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := c.pullArchive(ctx, db, project, log); err != nil {
		log.Warn(ctx, "pull-archive phase failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pushPhase replays delete tombstones, then pushes every pending row. Rows
// are pushed one at a time; a row that fails stays pending and the rest
// still get their chance.
func (c *Cache) pushPhase(ctx context.Context, db *localcache.DB, project string, log logging.Logger) error {
	if err := c.replayDeletes(ctx, db, project, log); err != nil {
		return err
	}

	pending, err := localcache.NewInventoryRepo(db.Reader()).PendingAll(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var pushed int
	var lastErr error
	for _, rec := range pending {
		remoteID, err := c.remote.UpsertBySerial(ctx, project, rec)
		if err != nil {
			lastErr = err
			continue
		}
		err = db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			return localcache.NewInventoryRepo(tx).MarkSynced(ctx, rec.ID, remoteID)
		})
		if errors.Is(err, common.ErrNotFound) {
			// edited mid-push; it is pending again and will re-push next cycle
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}
		pushed++
	}
	log.Info(ctx, "pushed pending records", "pushed", pushed, "of", len(pending))
	return lastErr
}

func (c *Cache) replayDeletes(ctx context.Context, db *localcache.DB, project string, log logging.Logger) error {
	tombs, err := localcache.NewMetadataRepo(db.Reader()).ListPrefix(ctx, localcache.MetaDeletePrefix)
	if err != nil {
		return err
	}
	for key, value := range tombs {
		remoteID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			// unreadable tombstone, drop it rather than wedge the cycle
			log.Warn(ctx, "dropping malformed delete tombstone", "key", key)
			_ = db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
				return localcache.NewMetadataRepo(tx).Delete(ctx, key)
			})
			continue
		}
		if err := c.remote.DeleteInventoryByID(ctx, project, remoteID); err != nil {
			return err
		}
		if err := db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			return localcache.NewMetadataRepo(tx).Delete(ctx, key)
		}); err != nil {
			return err
		}
		log.Info(ctx, "replayed remote delete", "remote_id", remoteID)
	}
	return nil
}

// pullActive mirrors the remote active set: remote serials unseen locally
// are inserted as synced, and local synced rows whose serial vanished
// remotely are dropped. Pending rows are never touched; local edits in
// flight always win until they push.
func (c *Cache) pullActive(ctx context.Context, db *localcache.DB, project string, log logging.Logger) error {
	remote, err := c.remote.GetAllInventory(ctx, project)
	if err != nil {
		return err
	}

	return db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := localcache.NewInventoryRepo(tx)
		local, err := repo.SyncedSerials(ctx)
		if err != nil {
			return err
		}

		var added int
		for _, rec := range remote {
			if _, ok := local[rec.SerialNumber]; ok {
				continue
			}
			if rec.RemoteID == nil {
				continue
			}
			err := repo.InsertSynced(ctx, rec, *rec.RemoteID)
			if errors.Is(err, common.ErrDuplicate) {
				// serial exists locally as a pending edit; leave it alone
				continue
			}
			if err != nil {
				return err
			}
			added++
		}

		var pruned int64
		stale := make([]string, 0)
		for serial := range local {
			if !containsSerial(remote, serial) {
				stale = append(stale, serial)
			}
		}
		if len(stale) > 0 {
			pruned, err = repo.DeleteSyncedBySerials(ctx, stale)
			if err != nil {
				return err
			}
		}

		if err := localcache.NewMetadataRepo(tx).Set(ctx, localcache.MetaLastPull,
			models.FormatTime(time.Now().UTC())); err != nil {
			return err
		}

		log.Info(ctx, "pulled active set", "remote", len(remote), "added", added, "pruned", pruned)
		return nil
	})
}

func containsSerial(recs []models.Record, serial string) bool {
	for _, rec := range recs {
		if rec.SerialNumber == serial {
			return true
		}
	}
	return false
}

// pullArchive refreshes the archive history view: the authoritative row
// count is stored verbatim, and the most recent window is mirrored
// wholesale.
func (c *Cache) pullArchive(ctx context.Context, db *localcache.DB, project string, log logging.Logger) error {
	count, err := c.remote.ImportedCount(ctx, project)
	if err != nil {
		return err
	}
	recent, err := c.remote.ImportedRecent(ctx, project, c.window)
	if err != nil {
		return err
	}

	return db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := localcache.NewImportedRepo(tx).ReplaceAll(ctx, recent); err != nil {
			return err
		}
		if err := localcache.NewMetadataRepo(tx).Set(ctx, localcache.MetaImportedCount,
			strconv.Itoa(count)); err != nil {
			return err
		}
		log.Info(ctx, "pulled archive window", "total", count, "mirrored", len(recent))
		return nil
	})
}

// ExportResult reports what an ArchiveAndExport moved and what it held back.
// Records is the pre-clear snapshot of the archived rows, in the order the
// remote listed them, ready to hand to the CSV writer.
type ExportResult struct {
	Records  []models.Record
	Moved    int
	Retained int
}

// ArchiveAndExport flushes pending rows, moves the remote active set into
// the archive, and clears the local mirror of everything that made it
// across. Rows that failed to push are retained pending so no locally
// entered data is ever dropped by an export.
func (c *Cache) ArchiveAndExport(ctx context.Context, project string) (*ExportResult, error) {
	importedAt := models.FormatTime(time.Now().UTC())

	if !c.enabled {
		snapshot, err := c.remote.GetAllInventory(ctx, project)
		if err != nil {
			return nil, err
		}
		moved, err := c.remote.MoveToImported(ctx, project, importedAt)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Records: snapshot, Moved: moved}, nil
	}

	db, err := c.db(project)
	if err != nil {
		return nil, err
	}
	log := c.log.With("project", project)

	// best-effort flush so the export carries today's entries
	if err := c.pushPhase(ctx, db, project, log); err != nil {
		log.Warn(ctx, "flush before export incomplete", "error", err)
	}

	snapshot, err := c.remote.GetAllInventory(ctx, project)
	if err != nil {
		return nil, err
	}
	moved, err := c.remote.MoveToImported(ctx, project, importedAt)
	if err != nil {
		return nil, err
	}

	err = db.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := localcache.NewInventoryRepo(tx).ClearSynced(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	pending, err := localcache.NewInventoryRepo(db.Reader()).PendingAll(ctx)
	if err != nil {
		return nil, err
	}
	retained := len(pending)
	if retained > 0 {
		log.Warn(ctx, "export retained unpushed records", "retained", retained)
	}

	if err := c.pullArchive(ctx, db, project, log); err != nil {
		log.Warn(ctx, "archive refresh after export failed", "error", err)
	}
	log.Info(ctx, "export complete", "moved", moved, "retained", retained)
	return &ExportResult{Records: snapshot, Moved: moved, Retained: retained}, nil
}

// Syncer drives periodic reconciliation for every configured project.
type Syncer struct {
	cache    *Cache
	projects []string
	interval time.Duration
	delay    time.Duration
	log      logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncer(cache *Cache, projects []string, interval, initialDelay time.Duration) *Syncer {
	return &Syncer{
		cache:    cache,
		projects: projects,
		interval: interval,
		delay:    initialDelay,
		log:      cache.log.With("component", "inventory_syncer"),
	}
}

// Start launches the background loop. The first cycle waits out the initial
// delay so application startup never contends with the mount.
func (s *Syncer) Start(ctx context.Context) {
	if !s.cache.enabled {
		s.log.Info(ctx, "inventory cache disabled, syncer not started")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return
		}
		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runCycle(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Syncer) runCycle(ctx context.Context) {
	cycle := uuid.NewString()
	log := s.log.With("cycle", cycle)
	start := time.Now()
	for _, project := range s.projects {
		if ctx.Err() != nil {
			return
		}
		if err := s.cache.SyncProject(ctx, project); err != nil {
			log.Warn(ctx, "sync cycle incomplete", "project", project, "error", err)
		}
	}
	log.Debug(ctx, "sync cycle finished", "elapsed", time.Since(start))
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *Syncer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SyncNow runs one cycle immediately, outside the timer. Used by the manual
// refresh action.
func (s *Syncer) SyncNow(ctx context.Context) {
	s.runCycle(ctx)
}
