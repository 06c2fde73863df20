package durable

import (
	"context"
	"fmt"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

// ImportedCount returns the total number of rows in the remote archive. The
// local side stores this verbatim: the full archive is never mirrored, only
// a recent window, so the remote count is the authoritative one.
func (s *Store) ImportedCount(ctx context.Context, project string) (int, error) {
	var count int
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.importedDB(ctx, project)
		if err != nil {
			return err
		}
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_inventory`).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count remote archive: %w", err)
	}
	return count, nil
}

// ImportedRecent returns the most recent limit rows of the remote archive,
// ordered newest-imported first.
func (s *Store) ImportedRecent(ctx context.Context, project string, limit int) ([]models.ArchivedRecord, error) {
	var result []models.ArchivedRecord
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.importedDB(ctx, project)
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx, `
			SELECT id, item_sku, serial_number, lpn, location, repair_state,
			       entered_by, created_at, imported_at, order_number
			FROM imported_inventory
			ORDER BY imported_at DESC, created_at DESC
			LIMIT ?
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var rec models.ArchivedRecord
			var created, imported string
			if err := rows.Scan(&rec.ID, &rec.ItemSKU, &rec.SerialNumber, &rec.LPN,
				&rec.Location, &rec.RepairState, &rec.EnteredBy, &created, &imported, &rec.OrderNumber); err != nil {
				return err
			}
			rec.CreatedAt = models.ParseTime(created)
			rec.ImportedAt = models.ParseTime(imported)
			result = append(result, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote archive window: %w", err)
	}
	return result, nil
}
