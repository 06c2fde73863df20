package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DustanBaker/The-Uplink/internal/config"
	"github.com/DustanBaker/The-Uplink/internal/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DurableDir = t.TempDir()
	cfg.LocalCacheDir = t.TempDir()
	cfg.Projects = []string{"ecoflow"}
	cfg.RetryAttempts = 2
	cfg.RetryDelay = time.Millisecond

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Inventory.Close()
		a.SKUs.Close()
		_ = a.remote.Close()
	})
	return a
}

func TestAppWiring(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.SKUs.Add(ctx, "ecoflow", "EF-DELTA-2", "power station"))
	ok, err := a.SKUs.Exists(ctx, "ecoflow", "ef-delta-2")
	require.NoError(t, err)
	assert.True(t, ok)

	rec := &models.Record{ItemSKU: "EF-DELTA-2", SerialNumber: "SN001", EnteredBy: "tester"}
	require.NoError(t, a.Inventory.Add(ctx, "ecoflow", rec))
	list, err := a.Inventory.List(ctx, "ecoflow", 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAppExportProject(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	for _, serial := range []string{"SN001", "SN002"} {
		rec := &models.Record{ItemSKU: "EF-DELTA-2", SerialNumber: serial, EnteredBy: "tester"}
		require.NoError(t, a.Inventory.Add(ctx, "ecoflow", rec))
	}

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := a.ExportProject(ctx, "ecoflow", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SN001")
	assert.Contains(t, string(data), "SN002")

	list, err := a.Inventory.List(ctx, "ecoflow", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	n, err := a.Inventory.ImportedCount(ctx, "ecoflow")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
