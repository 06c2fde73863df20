package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

// AddSKU inserts an approved SKU into the remote table. Returns
// common.ErrDuplicate when the normalized SKU already exists; duplicates are
// a routine outcome, not a fault.
func (s *Store) AddSKU(ctx context.Context, project, sku, description string) error {
	norm := models.NormalizeSKU(sku)
	err := s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (sku, description, created_at) VALUES (?, ?, ?)`, table),
			norm, description, models.FormatTime(time.Now()))
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicate
		}
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) {
			return common.ErrDuplicate
		}
		return fmt.Errorf("failed to add SKU %s: %w", norm, err)
	}
	return nil
}

// AddSKUsBulk writes a batch of entries in one pass. Per-row uniqueness
// violations are tolerated and counted; other storage faults abort the batch.
func (s *Store) AddSKUsBulk(ctx context.Context, project string, entries []models.ReferenceEntry) (added, failed int, err error) {
	err = s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		added, failed = 0, 0
		now := models.FormatTime(time.Now())
		stmt := fmt.Sprintf(`INSERT INTO %s (sku, description, created_at) VALUES (?, ?, ?)`, table)
		for _, e := range entries {
			_, err := db.ExecContext(ctx, stmt, models.NormalizeSKU(e.SKU), e.Description, now)
			switch {
			case err == nil:
				added++
			case dbx.IsUniqueViolation(err):
				failed++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to bulk add SKUs: %w", err)
	}
	return added, failed, nil
}

// DeleteSKU removes an approved SKU. Returns common.ErrNotFound when no row
// matched.
func (s *Store) DeleteSKU(ctx context.Context, project, sku string) error {
	norm := models.NormalizeSKU(sku)
	var affected int64
	err := s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		res, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE sku = ?`, table), norm)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete SKU %s: %w", norm, err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ClearSKUs deletes every approved SKU for the project and returns how many
// rows were removed.
func (s *Store) ClearSKUs(ctx context.Context, project string) (int, error) {
	var affected int64
	err := s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		res, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear SKUs: %w", err)
	}
	return int(affected), nil
}

// GetAllSKUs returns every approved SKU for the project, ordered by SKU.
func (s *Store) GetAllSKUs(ctx context.Context, project string) ([]models.ReferenceEntry, error) {
	var result []models.ReferenceEntry
	err := s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx,
			fmt.Sprintf(`SELECT id, sku, description, created_at FROM %s ORDER BY sku`, table))
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var e models.ReferenceEntry
			var id int64
			var created string
			if err := rows.Scan(&id, &e.SKU, &e.Description, &created); err != nil {
				return err
			}
			e.ID = &id
			e.CreatedAt = models.ParseTime(created)
			result = append(result, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SKUs: %w", err)
	}
	return result, nil
}

// CountSKUs returns the remote row count. The staleness probe compares this
// against the in-memory count to decide whether a full resync is worth a
// round trip.
func (s *Store) CountSKUs(ctx context.Context, project string) (int, error) {
	var count int
	err := s.do(ctx, func(ctx context.Context) error {
		db, table, err := s.skuTable(ctx, project)
		if err != nil {
			return err
		}
		return db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count SKUs: %w", err)
	}
	return count, nil
}
