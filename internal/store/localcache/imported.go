package localcache

import (
	"context"
	"fmt"

	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

// ImportedRepo holds the local mirror of the archive's recent window. The
// authoritative archive lives on the mount; this table only exists so the
// history view renders offline.
type ImportedRepo struct {
	db dbx.DBTX
}

func NewImportedRepo(db dbx.DBTX) *ImportedRepo {
	return &ImportedRepo{db: db}
}

// ReplaceAll swaps the mirrored window wholesale. Callers run it inside
// DB.Write so readers never observe the table half-filled.
func (r *ImportedRepo) ReplaceAll(ctx context.Context, recs []models.ArchivedRecord) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM imported_inventory`); err != nil {
		return fmt.Errorf("failed to clear imported mirror: %w", err)
	}
	for _, rec := range recs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO imported_inventory
				(item_sku, serial_number, lpn, location, repair_state, entered_by,
				 created_at, order_number, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ItemSKU, rec.SerialNumber, rec.LPN, rec.Location, rec.RepairState,
			rec.EnteredBy, models.FormatTime(rec.CreatedAt), rec.OrderNumber,
			models.FormatTime(rec.ImportedAt))
		if err != nil {
			return fmt.Errorf("failed to mirror imported record: %w", err)
		}
	}
	return nil
}

// List returns the mirrored window, most recently imported first.
func (r *ImportedRepo) List(ctx context.Context, limit int) ([]models.ArchivedRecord, error) {
	query := `
		SELECT id, item_sku, serial_number, lpn, location, repair_state,
		       entered_by, created_at, order_number, imported_at
		FROM imported_inventory
		ORDER BY imported_at DESC, created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list imported mirror: %w", err)
	}
	defer rows.Close()

	var result []models.ArchivedRecord
	for rows.Next() {
		var rec models.ArchivedRecord
		var created, imported string
		err := rows.Scan(&rec.ID, &rec.ItemSKU, &rec.SerialNumber, &rec.LPN,
			&rec.Location, &rec.RepairState, &rec.EnteredBy, &created,
			&rec.OrderNumber, &imported)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = models.ParseTime(created)
		rec.ImportedAt = models.ParseTime(imported)
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *ImportedRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_inventory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count imported mirror: %w", err)
	}
	return n, nil
}
