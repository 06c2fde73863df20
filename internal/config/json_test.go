package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"durable_dir":             "/mnt/share/uplink",
		"projects":                []string{"ecoflow"},
		"inventory_sync_interval": "90s",
		"sku_cache_enabled":       false,
		"archive_window":          25,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "/mnt/share/uplink", cfg.DurableDir)
		assert.Equal(t, []string{"ecoflow"}, cfg.Projects)
		assert.Equal(t, 90*time.Second, cfg.InventorySyncInterval)
		assert.False(t, cfg.SKUCacheEnabled)
		assert.Equal(t, 25, cfg.ArchiveWindow)
		// untouched by the sparse file
		assert.Equal(t, 30*time.Minute, cfg.SKUSyncInterval)
		assert.True(t, cfg.InventoryCacheEnabled)
	})

	t.Run("no config flag leaves values unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DurableDir: "/keep/me", ArchiveWindow: 7}
		parseJson(cfg)

		assert.Equal(t, "/keep/me", cfg.DurableDir)
		assert.Equal(t, 7, cfg.ArchiveWindow)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

func Test_parseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-d", "/mnt/p/uplink", "-p", "halo, ecoflow", "-i", "120"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "/mnt/p/uplink", cfg.DurableDir)
	assert.Equal(t, []string{"halo", "ecoflow"}, cfg.Projects)
	assert.Equal(t, 120*time.Second, cfg.InventorySyncInterval)
	assert.Equal(t, 30*time.Minute, cfg.SKUSyncInterval)
}
