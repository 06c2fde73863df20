// Package config loads runtime configuration for The-Uplink.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags).
//  4. Environment variables (see parseEnv): UPLINK_DB_PATH overrides the
//     durable store directory, UPLINK_CACHE_DIR the local cache directory.
//
// Supported flags
//
//	-d string   durable store directory (shared network mount)
//	-l string   local cache directory
//	-p string   comma-separated project list
//	-i int      inventory sync interval (seconds)
//	-s int      SKU sync interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "60s" or integer nanoseconds:
//
//	{
//	  "durable_dir": "/mnt/share/uplink",
//	  "projects": ["ecoflow", "halo"],
//	  "inventory_sync_interval": "60s",
//	  "sku_sync_interval": "30m",
//	  "retry_attempts": 3,
//	  "retry_delay": "1s"
//	}
//
// Primary API
//
//   - type Config                     - all cache and sync knobs
//   - func LoadConfig() *Config       - defaults, then JSON, flags, env
//   - func (*Config) LoadDefaults()   - sets deployment defaults
package config
