package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/dbx"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

// InventoryRepo implements the local active-inventory table using a DBTX
// (either the pooled handle for reads or a transaction from DB.Write).
type InventoryRepo struct {
	db dbx.DBTX
}

func NewInventoryRepo(db dbx.DBTX) *InventoryRepo {
	return &InventoryRepo{db: db}
}

const recordColumns = `id, item_sku, serial_number, lpn, location, repair_state,
	entered_by, created_at, order_number, sync_status, remote_id, last_modified`

func scanRecord(scan func(dest ...any) error) (models.Record, error) {
	var rec models.Record
	var created, modified string
	var remoteID sql.NullInt64
	err := scan(&rec.ID, &rec.ItemSKU, &rec.SerialNumber, &rec.LPN, &rec.Location,
		&rec.RepairState, &rec.EnteredBy, &created, &rec.OrderNumber,
		&rec.SyncStatus, &remoteID, &modified)
	if err != nil {
		return rec, err
	}
	rec.CreatedAt = models.ParseTime(created)
	rec.LastModified = models.ParseTime(modified)
	if remoteID.Valid {
		id := remoteID.Int64
		rec.RemoteID = &id
	}
	return rec, nil
}

// Insert adds a freshly entered record. The row starts pending with no
// remote id regardless of what the caller set. Returns common.ErrDuplicate
// when the serial number already exists in this project's cache.
func (r *InventoryRepo) Insert(ctx context.Context, rec *models.Record) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory
			(item_sku, serial_number, lpn, location, repair_state, entered_by,
			 created_at, order_number, sync_status, remote_id, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
		RETURNING id
	`, rec.ItemSKU, rec.SerialNumber, rec.LPN, rec.Location, rec.RepairState,
		rec.EnteredBy, models.FormatTime(rec.CreatedAt), rec.OrderNumber,
		models.SyncPending, models.FormatTime(rec.LastModified)).Scan(&rec.ID)
	if dbx.IsUniqueViolation(err) {
		return common.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	rec.SyncStatus = models.SyncPending
	rec.RemoteID = nil
	return nil
}

// Update mutates an existing row and resets it to pending so the next push
// re-sends it, even if it had synced before. Returns common.ErrNotFound when
// id does not exist.
func (r *InventoryRepo) Update(ctx context.Context, id int64, rec models.Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET item_sku = ?, serial_number = ?, lpn = ?, location = ?,
		    repair_state = ?, order_number = ?, sync_status = ?, last_modified = ?
		WHERE id = ?
	`, rec.ItemSKU, rec.SerialNumber, rec.LPN, rec.Location, rec.RepairState,
		rec.OrderNumber, models.SyncPending, models.FormatTime(rec.LastModified), id)
	if dbx.IsUniqueViolation(err) {
		return common.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes a row and returns its remote id (nil if it never synced) so
// the caller can record a tombstone. Returns common.ErrNotFound when id does
// not exist.
func (r *InventoryRepo) Delete(ctx context.Context, id int64) (*int64, error) {
	var remoteID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT remote_id FROM inventory WHERE id = ?`, id).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up record %d: %w", id, err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete record %d: %w", id, err)
	}

	if remoteID.Valid {
		v := remoteID.Int64
		return &v, nil
	}
	return nil, nil
}

// List returns records newest-created first. limit <= 0 means no limit.
func (r *InventoryRepo) List(ctx context.Context, limit, offset int) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *InventoryRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// PendingAll returns every row awaiting a push, oldest-created first so the
// remote receives them in entry order.
func (r *InventoryRepo) PendingAll(ctx context.Context) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM inventory WHERE sync_status = ? ORDER BY created_at ASC`,
		models.SyncPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// MarkSynced stamps the remote id and flips the row to synced. It refuses to
// touch a row that was modified since it was read (still guarded by the
// pending check) so a concurrent edit is not silently marked clean.
func (r *InventoryRepo) MarkSynced(ctx context.Context, localID, remoteID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory SET sync_status = ?, remote_id = ? WHERE id = ? AND sync_status = ?`,
		models.SyncSynced, remoteID, localID, models.SyncPending)
	if err != nil {
		return fmt.Errorf("failed to mark record %d synced: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// SyncedSerials returns the serial numbers of every synced row.
func (r *InventoryRepo) SyncedSerials(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT serial_number FROM inventory WHERE sync_status = ?`, models.SyncSynced)
	if err != nil {
		return nil, fmt.Errorf("failed to select synced serials: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var serial string
		if err := rows.Scan(&serial); err != nil {
			return nil, err
		}
		result[serial] = struct{}{}
	}
	return result, rows.Err()
}

// InsertSynced mirrors a remote row into the local cache as already-synced.
// Returns common.ErrDuplicate when the serial already exists locally (for
// example as an in-flight pending edit, which must not be clobbered).
func (r *InventoryRepo) InsertSynced(ctx context.Context, rec models.Record, remoteID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory
			(item_sku, serial_number, lpn, location, repair_state, entered_by,
			 created_at, order_number, sync_status, remote_id, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ItemSKU, rec.SerialNumber, rec.LPN, rec.Location, rec.RepairState,
		rec.EnteredBy, models.FormatTime(rec.CreatedAt), rec.OrderNumber,
		models.SyncSynced, remoteID, models.FormatTime(rec.CreatedAt))
	if dbx.IsUniqueViolation(err) {
		return common.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to mirror remote record: %w", err)
	}
	return nil
}

// DeleteSyncedBySerials removes synced rows whose serial number vanished
// from the remote (a delete or export performed on another node). Pending
// rows never match: the sync_status guard protects in-flight local edits.
func (r *InventoryRepo) DeleteSyncedBySerials(ctx context.Context, serials []string) (int64, error) {
	if len(serials) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(serials)-1) + "?"
	args := make([]any, 0, len(serials)+1)
	args = append(args, models.SyncSynced)
	for _, s := range serials {
		args = append(args, s)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM inventory WHERE sync_status = ? AND serial_number IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale synced records: %w", err)
	}
	return res.RowsAffected()
}

// ClearSynced removes every synced row, leaving pending rows in place. Used
// after an export so rows that failed to flush stay visible locally.
func (r *InventoryRepo) ClearSynced(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE sync_status = ?`, models.SyncSynced)
	if err != nil {
		return 0, fmt.Errorf("failed to clear synced records: %w", err)
	}
	return res.RowsAffected()
}
