// Package sku implements the write-through approved-SKU cache: validation
// lookups and prefix search are served from memory, every mutation hits the
// durable store first, and a local SQLite mirror lets the list load without
// the mount. Unlike inventory there is no pending state: a SKU write that
// cannot reach the remote fails outright.
package sku

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/config"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/models"
	"github.com/DustanBaker/The-Uplink/internal/store/durable"
	"github.com/DustanBaker/The-Uplink/internal/store/localcache"
)

// Status describes one project's cache state for diagnostics.
type Status struct {
	Project  string
	Loaded   bool
	Count    int
	Version  uint64
	LastSync time.Time
}

// Cache serves approved-SKU lookups for every configured project. Projects
// load lazily on first touch: mirror first, full remote sync only when the
// mirror is empty or stale.
type Cache struct {
	remote  *durable.Store
	local   *localcache.SKUDB
	log     logging.Logger
	enabled bool
	maxAge  time.Duration

	mu       sync.RWMutex
	projects map[string]*projectState
	group    singleflight.Group
}

type projectState struct {
	ix       *index
	lastSync time.Time
}

// NewCache opens the shared SKU mirror file. Nothing loads until a project
// is first touched.
func NewCache(ctx context.Context, cfg *config.Config, remote *durable.Store, log logging.Logger) (*Cache, error) {
	c := &Cache{
		remote:   remote,
		log:      log.With("component", "sku_cache"),
		enabled:  cfg.SKUCacheEnabled,
		maxAge:   cfg.SKUSyncInterval,
		projects: make(map[string]*projectState),
	}
	if !c.enabled {
		c.log.Warn(ctx, "sku cache disabled, operating directly on the durable store")
		return c, nil
	}

	local, err := localcache.OpenSKU(ctx, cfg.LocalCacheDir, cfg.LocalBusyTimeout.Milliseconds())
	if err != nil {
		return nil, err
	}
	c.local = local
	return c, nil
}

func (c *Cache) Close() {
	if c.local != nil {
		_ = c.local.Close()
	}
}

// ensureLoaded makes the project's index available, loading it at most once
// even under concurrent first touches. The mirror is preferred; an empty
// mirror forces a full sync from the durable store.
func (c *Cache) ensureLoaded(ctx context.Context, project string) (*projectState, error) {
	c.mu.RLock()
	state, ok := c.projects[project]
	c.mu.RUnlock()
	if ok {
		return state, nil
	}
	if !durable.ValidProject(project) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownProject, project)
	}

	v, err, _ := c.group.Do(project, func() (any, error) {
		c.mu.RLock()
		state, ok := c.projects[project]
		c.mu.RUnlock()
		if ok {
			return state, nil
		}

		repo := localcache.NewSKURepo(c.local.Reader())
		mirrored, err := repo.LoadProject(ctx, project)
		if err != nil {
			return nil, err
		}
		lastSync, syncErr := repo.LastSync(ctx, project)

		if len(mirrored) == 0 || syncErr != nil {
			return c.loadFromRemote(ctx, project)
		}
		if time.Since(lastSync) > c.maxAge {
			// stale mirror: prefer a fresh pull, fall back to what we have
			if state, err := c.loadFromRemote(ctx, project); err == nil {
				return state, nil
			}
			c.log.Warn(ctx, "stale sku mirror refresh failed, serving mirror", "project", project)
		}

		state = &projectState{ix: newIndex(), lastSync: lastSync}
		state.ix.rebuild(mirrored)
		c.mu.Lock()
		c.projects[project] = state
		c.mu.Unlock()
		c.log.Info(ctx, "sku list loaded from mirror", "project", project,
			"count", state.ix.len(), "last_sync", lastSync)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*projectState), nil
}

func (c *Cache) loadFromRemote(ctx context.Context, project string) (*projectState, error) {
	list, err := c.remote.GetAllSKUs(ctx, project)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if err := c.local.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewSKURepo(tx).ReplaceProject(ctx, project, list, now)
	}); err != nil {
		return nil, err
	}

	state := &projectState{ix: newIndex(), lastSync: now}
	state.ix.rebuild(list)
	c.mu.Lock()
	c.projects[project] = state
	c.mu.Unlock()
	c.log.Info(ctx, "sku list synced from durable store", "project", project, "count", state.ix.len())
	return state, nil
}

// Resync forces a full refresh of one project from the durable store.
func (c *Cache) Resync(ctx context.Context, project string) error {
	if !c.enabled {
		return common.ErrCacheDisabled
	}
	if !durable.ValidProject(project) {
		return fmt.Errorf("%w: %s", common.ErrUnknownProject, project)
	}
	_, err := c.loadFromRemote(ctx, project)
	return err
}

// Add writes a SKU through to the durable store, then mirrors it locally
// and in memory. The remote write is the commit point: a remote failure
// leaves every layer unchanged. Returns common.ErrDuplicate for a SKU the
// project already has.
func (c *Cache) Add(ctx context.Context, project, sku, description string) error {
	normalized := models.NormalizeSKU(sku)
	if normalized == "" {
		return fmt.Errorf("empty sku")
	}

	if err := c.remote.AddSKU(ctx, project, normalized, description); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}

	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return err
	}
	entry := models.ReferenceEntry{SKU: normalized, Description: description, CreatedAt: time.Now().UTC()}

	if err := c.local.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewSKURepo(tx).InsertOne(ctx, project, entry)
	}); err != nil {
		return err
	}
	c.mu.Lock()
	state.ix.insert(entry)
	c.mu.Unlock()
	return nil
}

// Delete removes a SKU from the durable store, then from the mirror and
// memory. Returns common.ErrNotFound when the project never had it.
func (c *Cache) Delete(ctx context.Context, project, sku string) error {
	normalized := models.NormalizeSKU(sku)

	if err := c.remote.DeleteSKU(ctx, project, normalized); err != nil {
		return err
	}
	if !c.enabled {
		return nil
	}

	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return err
	}
	if err := c.local.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewSKURepo(tx).DeleteOne(ctx, project, normalized)
	}); err != nil {
		return err
	}
	c.mu.Lock()
	state.ix.remove(normalized)
	c.mu.Unlock()
	return nil
}

// AddBulk pushes a batch of SKUs to the durable store (duplicates are
// tolerated per row) and then resyncs the whole project, which also picks
// up the remote-assigned ids.
func (c *Cache) AddBulk(ctx context.Context, project string, entries []models.ReferenceEntry) (added, failed int, err error) {
	normalized := make([]models.ReferenceEntry, 0, len(entries))
	for _, e := range entries {
		e.SKU = models.NormalizeSKU(e.SKU)
		if e.SKU == "" {
			failed++
			continue
		}
		normalized = append(normalized, e)
	}

	added, f, err := c.remote.AddSKUsBulk(ctx, project, normalized)
	failed += f
	if err != nil {
		return added, failed, err
	}
	if !c.enabled {
		return added, failed, nil
	}
	if _, err := c.loadFromRemote(ctx, project); err != nil {
		return added, failed, err
	}
	return added, failed, nil
}

// Clear wipes a project's approved list everywhere. Returns the number of
// rows removed from the durable store.
func (c *Cache) Clear(ctx context.Context, project string) (int, error) {
	removed, err := c.remote.ClearSKUs(ctx, project)
	if err != nil {
		return 0, err
	}
	if !c.enabled {
		return removed, nil
	}

	now := time.Now().UTC()
	if err := c.local.Write(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return localcache.NewSKURepo(tx).ReplaceProject(ctx, project, nil, now)
	}); err != nil {
		return removed, err
	}
	c.mu.Lock()
	if state, ok := c.projects[project]; ok {
		state.ix.rebuild(nil)
		state.lastSync = now
	}
	c.mu.Unlock()
	return removed, nil
}

// Exists reports whether the project's approved list contains the SKU.
// This is the hot path behind scan validation; with the cache on it never
// touches the mount.
func (c *Cache) Exists(ctx context.Context, project, sku string) (bool, error) {
	if !c.enabled {
		list, err := c.remote.GetAllSKUs(ctx, project)
		if err != nil {
			return false, err
		}
		normalized := models.NormalizeSKU(sku)
		for _, e := range list {
			if models.NormalizeSKU(e.SKU) == normalized {
				return true, nil
			}
		}
		return false, nil
	}

	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return state.ix.contains(sku), nil
}

// SearchByPrefix returns up to limit approved SKUs starting with the given
// prefix, sorted. Backs the entry-form autocomplete.
func (c *Cache) SearchByPrefix(ctx context.Context, project, prefix string, limit int) ([]string, error) {
	if !c.enabled {
		list, err := c.remote.GetAllSKUs(ctx, project)
		if err != nil {
			return nil, err
		}
		ix := newIndex()
		ix.rebuild(list)
		return ix.prefix(prefix, limit), nil
	}

	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return state.ix.prefix(prefix, limit), nil
}

// All returns the project's full approved list, sorted by SKU.
func (c *Cache) All(ctx context.Context, project string) ([]models.ReferenceEntry, error) {
	if !c.enabled {
		return c.remote.GetAllSKUs(ctx, project)
	}
	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return state.ix.all(), nil
}

func (c *Cache) Count(ctx context.Context, project string) (int, error) {
	if !c.enabled {
		return c.remote.CountSKUs(ctx, project)
	}
	state, err := c.ensureLoaded(ctx, project)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return state.ix.len(), nil
}

// Status reports diagnostics for one project without triggering a load.
func (c *Cache) Status(project string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{Project: project}
	if state, ok := c.projects[project]; ok {
		st.Loaded = true
		st.Count = state.ix.len()
		st.Version = state.ix.version
		st.LastSync = state.lastSync
	}
	return st
}

// Refresher periodically probes loaded projects for staleness by comparing
// the remote row count with the in-memory count, and resyncs only on
// divergence. The probe is a single COUNT(*) against the mount, far cheaper
// than an unconditional full pull; a failed probe just leaves the current
// list in place.
type Refresher struct {
	cache    *Cache
	interval time.Duration
	log      logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(cache *Cache, interval time.Duration) *Refresher {
	return &Refresher{
		cache:    cache,
		interval: interval,
		log:      cache.log.With("component", "sku_refresher"),
	}
}

func (r *Refresher) Start(ctx context.Context) {
	if !r.cache.enabled {
		r.log.Info(ctx, "sku cache disabled, refresher not started")
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.probe(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Refresher) probe(ctx context.Context) {
	r.cache.mu.RLock()
	loaded := make(map[string]int, len(r.cache.projects))
	for project, state := range r.cache.projects {
		loaded[project] = state.ix.len()
	}
	r.cache.mu.RUnlock()

	for project, localCount := range loaded {
		if ctx.Err() != nil {
			return
		}
		remoteCount, err := r.cache.remote.CountSKUs(ctx, project)
		if err != nil {
			r.log.Warn(ctx, "staleness probe failed, keeping cached list", "project", project, "error", err)
			continue
		}
		if remoteCount == localCount {
			continue
		}
		r.log.Info(ctx, "sku count diverged, resyncing", "project", project,
			"local", localCount, "remote", remoteCount)
		if err := r.cache.Resync(ctx, project); err != nil {
			r.log.Warn(ctx, "sku resync failed, keeping cached list", "project", project, "error", err)
		}
	}
}

func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}
