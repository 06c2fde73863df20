// Package export writes archive-export snapshots as CSV files matching the
// layout downstream spreadsheets expect.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

var header = []string{
	"SKU", "Serial Number", "LPN", "Location",
	"Repair State", "Entered By", "Created At", "Order Number",
}

// WriteCSV writes the snapshot to w, header first, in the given order.
func WriteCSV(w io.Writer, recs []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.ItemSKU,
			rec.SerialNumber,
			rec.LPN,
			rec.Location,
			rec.RepairState,
			rec.EnteredBy,
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.OrderNumber,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName builds the conventional export file name for a project, e.g.
// "ecoflow_export_2026-01-30_154500.csv".
func FileName(project string, at time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", project, at.Local().Format("2006-01-02_150405"))
}

// WriteFile writes the snapshot into dir under the conventional name and
// returns the full path. The file is written atomically: a temp file is
// renamed into place so a crash never leaves a half-written export.
func WriteFile(dir, project string, recs []models.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(project, time.Now()))

	tmp, err := os.CreateTemp(dir, "export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, recs); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to finalize export file: %w", err)
	}
	return path, nil
}
