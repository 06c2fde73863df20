package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

// SKURepo maintains the local mirror of approved SKU lists, one shared
// database for every project with a project column discriminating rows.
type SKURepo struct {
	db dbx.DBTX
}

func NewSKURepo(db dbx.DBTX) *SKURepo {
	return &SKURepo{db: db}
}

// LoadProject returns the mirrored SKU list for one project, sorted.
func (r *SKURepo) LoadProject(ctx context.Context, project string) ([]models.ReferenceEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, description, created_at FROM sku_cache
		WHERE project = ? ORDER BY sku ASC
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load sku mirror for %s: %w", project, err)
	}
	defer rows.Close()

	var result []models.ReferenceEntry
	for rows.Next() {
		var e models.ReferenceEntry
		var created string
		if err := rows.Scan(&e.SKU, &e.Description, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = models.ParseTime(created)
		result = append(result, e)
	}
	return result, rows.Err()
}

// ReplaceProject swaps one project's mirrored list wholesale and stamps the
// sync metadata. Callers run it inside SKUDB.Write.
func (r *SKURepo) ReplaceProject(ctx context.Context, project string, entries []models.ReferenceEntry, syncedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sku_cache WHERE project = ?`, project); err != nil {
		return fmt.Errorf("failed to clear sku mirror for %s: %w", project, err)
	}
	for _, e := range entries {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO sku_cache (sku, description, project, created_at)
			VALUES (?, ?, ?, ?)
		`, e.SKU, e.Description, project, models.FormatTime(e.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to mirror sku %s: %w", e.SKU, err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_metadata (project, last_sync, version)
		VALUES (?, ?, 1)
		ON CONFLICT(project) DO UPDATE SET
			last_sync = excluded.last_sync,
			version = cache_metadata.version + 1
	`, project, models.FormatTime(syncedAt))
	if err != nil {
		return fmt.Errorf("failed to stamp sku sync for %s: %w", project, err)
	}
	return nil
}

// InsertOne mirrors a single write-through add without disturbing the rest
// of the project's list.
func (r *SKURepo) InsertOne(ctx context.Context, project string, e models.ReferenceEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sku_cache (sku, description, project, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku, project) DO UPDATE SET description = excluded.description
	`, e.SKU, e.Description, project, models.FormatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to mirror sku add: %w", err)
	}
	return nil
}

// DeleteOne mirrors a single write-through delete.
func (r *SKURepo) DeleteOne(ctx context.Context, project, sku string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sku_cache WHERE project = ? AND sku = ?`, project, sku)
	if err != nil {
		return fmt.Errorf("failed to mirror sku delete: %w", err)
	}
	return nil
}

// LastSync reports when the project's mirror last refreshed. Returns
// common.ErrNotFound when the project has never synced.
func (r *SKURepo) LastSync(ctx context.Context, project string) (time.Time, error) {
	var stamp string
	err := r.db.QueryRowContext(ctx,
		`SELECT last_sync FROM cache_metadata WHERE project = ?`, project).Scan(&stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, common.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sku sync stamp for %s: %w", project, err)
	}
	return models.ParseTime(stamp), nil
}
