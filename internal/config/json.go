package config

import (
	"encoding/json"
	"os"

	"github.com/DustanBaker/The-Uplink/internal/flagx"
	"github.com/DustanBaker/The-Uplink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be written either as strings like "60s" or
// as integer nanoseconds. Pointer fields distinguish "absent" from the zero
// value so a sparse file only overrides what it names.
type JsonConfig struct {
	DurableDir    *string  `json:"durable_dir"`
	LocalCacheDir *string  `json:"local_cache_dir"`
	Projects      []string `json:"projects"`

	InventoryCacheEnabled *bool `json:"inventory_cache_enabled"`
	SKUCacheEnabled       *bool `json:"sku_cache_enabled"`

	InventorySyncInterval *timex.Duration `json:"inventory_sync_interval"`
	SKUSyncInterval       *timex.Duration `json:"sku_sync_interval"`
	InitialSyncDelay      *timex.Duration `json:"initial_sync_delay"`

	RetryAttempts *uint64         `json:"retry_attempts"`
	RetryDelay    *timex.Duration `json:"retry_delay"`

	RemoteBusyTimeout *timex.Duration `json:"remote_busy_timeout"`
	LocalBusyTimeout  *timex.Duration `json:"local_busy_timeout"`

	ArchiveWindow *int `json:"archive_window"`
}

// parseJson overlays Config with values loaded from a JSON file named by the
// -c/-config flags. Absent file means no overrides. Read or unmarshal errors
// panic; a broken config file should stop the app before any cache opens.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DurableDir != nil {
		cfg.DurableDir = *jc.DurableDir
	}
	if jc.LocalCacheDir != nil {
		cfg.LocalCacheDir = *jc.LocalCacheDir
	}
	if len(jc.Projects) > 0 {
		cfg.Projects = jc.Projects
	}
	if jc.InventoryCacheEnabled != nil {
		cfg.InventoryCacheEnabled = *jc.InventoryCacheEnabled
	}
	if jc.SKUCacheEnabled != nil {
		cfg.SKUCacheEnabled = *jc.SKUCacheEnabled
	}
	if jc.InventorySyncInterval != nil {
		cfg.InventorySyncInterval = jc.InventorySyncInterval.Duration
	}
	if jc.SKUSyncInterval != nil {
		cfg.SKUSyncInterval = jc.SKUSyncInterval.Duration
	}
	if jc.InitialSyncDelay != nil {
		cfg.InitialSyncDelay = jc.InitialSyncDelay.Duration
	}
	if jc.RetryAttempts != nil {
		cfg.RetryAttempts = *jc.RetryAttempts
	}
	if jc.RetryDelay != nil {
		cfg.RetryDelay = jc.RetryDelay.Duration
	}
	if jc.RemoteBusyTimeout != nil {
		cfg.RemoteBusyTimeout = jc.RemoteBusyTimeout.Duration
	}
	if jc.LocalBusyTimeout != nil {
		cfg.LocalBusyTimeout = jc.LocalBusyTimeout.Duration
	}
	if jc.ArchiveWindow != nil {
		cfg.ArchiveWindow = *jc.ArchiveWindow
	}
}
