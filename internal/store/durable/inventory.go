package durable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

// UpsertBySerial inserts or replaces a row in the remote active inventory,
// keyed by serial number, and returns the remote row id. An update from a
// second push of the same serial keeps the original remote id.
func (s *Store) UpsertBySerial(ctx context.Context, project string, rec models.Record) (int64, error) {
	var remoteID int64
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.activeDB(ctx, project)
		if err != nil {
			return err
		}
		return db.QueryRowContext(ctx, `
			INSERT INTO inventory
				(item_sku, serial_number, lpn, location, repair_state, entered_by, created_at, order_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(serial_number) DO UPDATE SET
				item_sku = excluded.item_sku,
				lpn = excluded.lpn,
				location = excluded.location,
				repair_state = excluded.repair_state,
				entered_by = excluded.entered_by,
				order_number = excluded.order_number
			RETURNING id
		`, rec.ItemSKU, rec.SerialNumber, rec.LPN, rec.Location, rec.RepairState,
			rec.EnteredBy, models.FormatTime(rec.CreatedAt), rec.OrderNumber).Scan(&remoteID)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert inventory row: %w", err)
	}
	return remoteID, nil
}

// GetAllInventory returns every remote active row for the project, newest
// first. The returned records carry the remote row id in both ID and
// RemoteID; sync bookkeeping fields are not part of the remote schema.
func (s *Store) GetAllInventory(ctx context.Context, project string) ([]models.Record, error) {
	var result []models.Record
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.activeDB(ctx, project)
		if err != nil {
			return err
		}
		rows, err := db.QueryContext(ctx, `
			SELECT id, item_sku, serial_number, lpn, location, repair_state,
			       entered_by, created_at, order_number
			FROM inventory
			ORDER BY created_at DESC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var rec models.Record
			var created string
			if err := rows.Scan(&rec.ID, &rec.ItemSKU, &rec.SerialNumber, &rec.LPN,
				&rec.Location, &rec.RepairState, &rec.EnteredBy, &created, &rec.OrderNumber); err != nil {
				return err
			}
			rec.CreatedAt = models.ParseTime(created)
			id := rec.ID
			rec.RemoteID = &id
			result = append(result, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote inventory: %w", err)
	}
	return result, nil
}

// DeleteInventoryByID removes a remote active row. Used by the tombstone
// replay: a station that deleted a synced item propagates that delete here.
// Deleting an id that is already gone is not an error.
func (s *Store) DeleteInventoryByID(ctx context.Context, project string, remoteID int64) error {
	err := s.do(ctx, func(ctx context.Context) error {
		db, err := s.activeDB(ctx, project)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, remoteID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete remote inventory row %d: %w", remoteID, err)
	}
	return nil
}

// MoveToImported copies every remote active row into the remote archive
// (stamping imported_at) and deletes the active rows, in one transaction on
// one connection with the archive file attached. Returns the number of rows
// moved.
func (s *Store) MoveToImported(ctx context.Context, project string, importedAt string) (int, error) {
	var moved int
	err := s.do(ctx, func(ctx context.Context) error {
		// Opening the archive handle first guarantees its schema exists
		// before the attach below touches the file.
		if _, err := s.importedDB(ctx, project); err != nil {
			return err
		}
		db, err := s.activeDB(ctx, project)
		if err != nil {
			return err
		}

		conn, err := db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS archive`, s.importedPath(project)); err != nil {
			return fmt.Errorf("failed to attach archive: %w", err)
		}
		defer conn.ExecContext(context.WithoutCancel(ctx), `DETACH DATABASE archive`)

		err = execTx(ctx, conn, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO archive.imported_inventory
					(item_sku, serial_number, lpn, location, repair_state,
					 entered_by, created_at, imported_at, order_number)
				SELECT item_sku, serial_number, lpn, location, repair_state,
				       entered_by, created_at, ?, order_number
				FROM inventory
			`, importedAt)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			moved = int(n)

			_, err = tx.ExecContext(ctx, `DELETE FROM inventory`)
			return err
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to move inventory to imported: %w", err)
	}
	return moved, nil
}

func execTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
