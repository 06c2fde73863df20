package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

func sampleRecords() []models.Record {
	created := time.Date(2026, 1, 30, 15, 45, 0, 0, time.UTC)
	return []models.Record{
		{
			ItemSKU:      "EF-DELTA-2",
			SerialNumber: "SN001",
			LPN:          "LPN001",
			Location:     "A-12",
			RepairState:  "Triage",
			EnteredBy:    "tester",
			CreatedAt:    created,
			OrderNumber:  "ORD-100",
		},
		{
			ItemSKU:      "EF-RIVER-2",
			SerialNumber: "SN002",
			CreatedAt:    created.Add(time.Minute),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"SKU", "Serial Number", "LPN", "Location",
		"Repair State", "Entered By", "Created At", "Order Number"}, rows[0])
	assert.Equal(t, "EF-DELTA-2", rows[1][0])
	assert.Equal(t, "SN001", rows[1][1])
	assert.Equal(t, "ORD-100", rows[1][7])
	assert.Equal(t, "SN002", rows[2][1])
	assert.Empty(t, rows[2][2])
}

func TestWriteCSVEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 1, 30, 15, 45, 0, 0, time.Local)
	assert.Equal(t, "ecoflow_export_2026-01-30_154500.csv", FileName("ecoflow", at))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := WriteFile(dir, "ecoflow", sampleRecords())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "ecoflow_export_"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SN001")

	// no leftover temp files
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
