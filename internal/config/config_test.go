package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, []string{"ecoflow", "halo", "ams_ine"}, c.Projects)
	assert.True(t, c.InventoryCacheEnabled)
	assert.True(t, c.SKUCacheEnabled)
	assert.Equal(t, 60*time.Second, c.InventorySyncInterval)
	assert.Equal(t, 30*time.Minute, c.SKUSyncInterval)
	assert.Equal(t, 10*time.Second, c.InitialSyncDelay)
	assert.Equal(t, uint64(3), c.RetryAttempts)
	assert.Equal(t, time.Second, c.RetryDelay)
	assert.Equal(t, 30*time.Second, c.RemoteBusyTimeout)
	assert.Equal(t, 5*time.Second, c.LocalBusyTimeout)
	assert.Equal(t, 100, c.ArchiveWindow)
	assert.NotEmpty(t, c.LocalCacheDir)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("UPLINK_DB_PATH", "/mnt/share/uplink")
	t.Setenv("UPLINK_CACHE_DIR", "/tmp/uplink-cache")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "/mnt/share/uplink", c.DurableDir)
	assert.Equal(t, "/tmp/uplink-cache", c.LocalCacheDir)
}

func TestParseEnv_EmptyLeavesDefaults(t *testing.T) {
	t.Setenv("UPLINK_DB_PATH", "")
	t.Setenv("UPLINK_CACHE_DIR", "")

	var c Config
	c.LoadDefaults()
	before := c
	parseEnv(&c)

	require.Equal(t, before.DurableDir, c.DurableDir)
	require.Equal(t, before.LocalCacheDir, c.LocalCacheDir)
}
