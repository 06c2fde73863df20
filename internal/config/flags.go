package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/DustanBaker/The-Uplink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   durable store directory (shared network mount)
//	-l string   local cache directory
//	-p string   comma-separated project list
//	-i int      inventory sync interval in seconds
//	-s int      SKU sync interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-l", "-p", "-i", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DurableDir, "d", cfg.DurableDir, "durable store directory on the shared mount")
	fs.StringVar(&cfg.LocalCacheDir, "l", cfg.LocalCacheDir, "local cache directory")
	projects := fs.String("p", strings.Join(cfg.Projects, ","), "comma-separated project list")
	invInterval := fs.Int("i", int(cfg.InventorySyncInterval.Seconds()), "inventory sync interval (in seconds)")
	skuInterval := fs.Int("s", int(cfg.SKUSyncInterval.Seconds()), "SKU sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *projects != "" {
		parts := strings.Split(*projects, ",")
		out := parts[:0]
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		cfg.Projects = out
	}
	cfg.InventorySyncInterval = time.Duration(*invInterval) * time.Second
	cfg.SKUSyncInterval = time.Duration(*skuInterval) * time.Second
}
