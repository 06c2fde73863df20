// Package migrations embeds the goose migration scripts for the local cache
// databases: one set for the per-project inventory cache files, one for the
// shared SKU cache file.
package migrations

import "embed"

//go:embed inventory/*.sql sku/*.sql
var Migrations embed.FS
