package models

import (
	"strings"
	"time"
)

// ReferenceEntry is an approved SKU. ID is nil until the entry has been
// observed with its remote row id (a write-through add learns the id on the
// next full sync).
type ReferenceEntry struct {
	ID          *int64
	SKU         string
	Description string
	CreatedAt   time.Time
}

// NormalizeSKU upper-cases and trims a SKU. Every map key, sorted-list entry
// and persisted row uses the normalized form.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
