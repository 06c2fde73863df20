package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for The-Uplink cache and sync subsystem.
//
// DurableDir is the directory on the shared network mount holding the
// authoritative SQLite files (users.db plus one active/imported pair per
// project). LocalCacheDir is the per-node directory holding the fast local
// mirrors; it defaults to the OS user cache directory.
type Config struct {
	DurableDir    string
	LocalCacheDir string
	Projects      []string

	InventoryCacheEnabled bool
	SKUCacheEnabled       bool

	InventorySyncInterval time.Duration
	SKUSyncInterval       time.Duration
	InitialSyncDelay      time.Duration

	RetryAttempts uint64
	RetryDelay    time.Duration

	RemoteBusyTimeout time.Duration
	LocalBusyTimeout  time.Duration

	ArchiveWindow int
}

// LoadDefaults populates c with the deployment defaults. Intervals are
// conservative: the shared drive is slow and contended, so the inventory
// cache syncs once a minute and the SKU cache twice an hour.
func (c *Config) LoadDefaults() {
	c.DurableDir = "."
	c.LocalCacheDir = defaultLocalCacheDir()
	c.Projects = []string{"ecoflow", "halo", "ams_ine"}
	c.InventoryCacheEnabled = true
	c.SKUCacheEnabled = true
	c.InventorySyncInterval = 60 * time.Second
	c.SKUSyncInterval = 30 * time.Minute
	c.InitialSyncDelay = 10 * time.Second
	c.RetryAttempts = 3
	c.RetryDelay = time.Second
	c.RemoteBusyTimeout = 30 * time.Second
	c.LocalBusyTimeout = 5 * time.Second
	c.ArchiveWindow = 100
}

func defaultLocalCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base, _ = os.UserHomeDir()
	}
	return filepath.Join(base, "The-Uplink")
}

// parseEnv overlays Config with environment overrides. UPLINK_DB_PATH points
// at the shared durable-store directory and wins over both JSON and flags so
// a deployment script can relocate the share without touching the install.
func parseEnv(cfg *Config) {
	if v := os.Getenv("UPLINK_DB_PATH"); v != "" {
		cfg.DurableDir = v
	}
	if v := os.Getenv("UPLINK_CACHE_DIR"); v != "" {
		cfg.LocalCacheDir = v
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), command-line flags and the environment. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
