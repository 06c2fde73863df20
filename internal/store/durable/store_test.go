package durable

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/common"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/models"
	"github.com/DustanBaker/The-Uplink/internal/retryx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	s := NewStore(t.TempDir(), 5*time.Second, retryx.Config{Attempts: 2, Delay: time.Millisecond}, log)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(serial string) models.Record {
	return models.Record{
		ItemSKU:      "ABC123",
		SerialNumber: serial,
		LPN:          "LPN1",
		Location:     "A1",
		RepairState:  "new",
		EnteredBy:    "dusty",
		CreatedAt:    time.Now(),
		OrderNumber:  "ORD-7",
	}
}

func TestValidProject(t *testing.T) {
	assert.True(t, ValidProject("ecoflow"))
	assert.True(t, ValidProject("ams_ine"))
	assert.False(t, ValidProject("Eco Flow"))
	assert.False(t, ValidProject("../etc"))
	assert.False(t, ValidProject(""))
}

func TestUpsertBySerial_InsertThenUpdateKeepsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertBySerial(ctx, "ecoflow", testRecord("SN1"))
	require.NoError(t, err)
	require.NotZero(t, id1)

	rec := testRecord("SN1")
	rec.RepairState = "refurb"
	id2, err := s.UpsertBySerial(ctx, "ecoflow", rec)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "re-push of the same serial must keep the remote id")

	rows, err := s.GetAllInventory(ctx, "ecoflow")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "refurb", rows[0].RepairState)
	require.NotNil(t, rows[0].RemoteID)
	assert.Equal(t, id1, *rows[0].RemoteID)
}

func TestGetAllInventory_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := testRecord("SN-OLD")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testRecord("SN-NEW")

	_, err := s.UpsertBySerial(ctx, "ecoflow", older)
	require.NoError(t, err)
	_, err = s.UpsertBySerial(ctx, "ecoflow", newer)
	require.NoError(t, err)

	rows, err := s.GetAllInventory(ctx, "ecoflow")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SN-NEW", rows[0].SerialNumber)
	assert.Equal(t, "SN-OLD", rows[1].SerialNumber)
}

func TestDeleteInventoryByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertBySerial(ctx, "ecoflow", testRecord("SN1"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteInventoryByID(ctx, "ecoflow", id))

	rows, err := s.GetAllInventory(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Empty(t, rows)

	// deleting an id that is already gone is fine
	require.NoError(t, s.DeleteInventoryByID(ctx, "ecoflow", id))
}

func TestMoveToImported(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, serial := range []string{"SN1", "SN2", "SN3"} {
		_, err := s.UpsertBySerial(ctx, "ecoflow", testRecord(serial))
		require.NoError(t, err)
	}

	stamp := models.FormatTime(time.Now())
	moved, err := s.MoveToImported(ctx, "ecoflow", stamp)
	require.NoError(t, err)
	assert.Equal(t, 3, moved)

	active, err := s.GetAllInventory(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Empty(t, active, "active table must be drained")

	count, err := s.ImportedCount(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	window, err := s.ImportedRecent(ctx, "ecoflow", 2)
	require.NoError(t, err)
	assert.Len(t, window, 2)
	assert.False(t, window[0].ImportedAt.IsZero())
}

func TestProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBySerial(ctx, "ecoflow", testRecord("SN1"))
	require.NoError(t, err)

	rows, err := s.GetAllInventory(ctx, "halo")
	require.NoError(t, err)
	assert.Empty(t, rows, "projects must never mix records")
}

func TestInvalidProjectRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBySerial(ctx, "no such project", testRecord("SN1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownProject)
}

func TestMissingMountSurfacesUnavailable(t *testing.T) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	s := NewStore("/nonexistent/mount", time.Second, retryx.Config{Attempts: 2, Delay: time.Millisecond}, log)
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.GetAllInventory(context.Background(), "ecoflow")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
