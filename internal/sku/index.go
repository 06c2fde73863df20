package sku

import (
	"sort"
	"strings"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

// index is the in-memory view of one project's approved SKU list: a map for
// O(1) membership checks and a sorted slice for prefix scans. Both are kept
// in lockstep; the owning Cache serializes all mutation under its lock.
type index struct {
	entries map[string]models.ReferenceEntry
	sorted  []string
	version uint64
}

func newIndex() *index {
	return &index{entries: make(map[string]models.ReferenceEntry)}
}

// rebuild replaces the whole index from a full list. SKUs are normalized
// here so lookups can normalize once and trust the keys.
func (ix *index) rebuild(list []models.ReferenceEntry) {
	ix.entries = make(map[string]models.ReferenceEntry, len(list))
	ix.sorted = ix.sorted[:0]
	for _, e := range list {
		key := models.NormalizeSKU(e.SKU)
		if key == "" {
			continue
		}
		if _, dup := ix.entries[key]; !dup {
			ix.sorted = append(ix.sorted, key)
		}
		e.SKU = key
		ix.entries[key] = e
	}
	sort.Strings(ix.sorted)
	ix.version++
}

func (ix *index) insert(e models.ReferenceEntry) {
	key := models.NormalizeSKU(e.SKU)
	if key == "" {
		return
	}
	e.SKU = key
	if _, exists := ix.entries[key]; !exists {
		pos := sort.SearchStrings(ix.sorted, key)
		ix.sorted = append(ix.sorted, "")
		copy(ix.sorted[pos+1:], ix.sorted[pos:])
		ix.sorted[pos] = key
	}
	ix.entries[key] = e
	ix.version++
}

func (ix *index) remove(sku string) bool {
	key := models.NormalizeSKU(sku)
	if _, exists := ix.entries[key]; !exists {
		return false
	}
	delete(ix.entries, key)
	pos := sort.SearchStrings(ix.sorted, key)
	if pos < len(ix.sorted) && ix.sorted[pos] == key {
		ix.sorted = append(ix.sorted[:pos], ix.sorted[pos+1:]...)
	}
	ix.version++
	return true
}

func (ix *index) contains(sku string) bool {
	_, ok := ix.entries[models.NormalizeSKU(sku)]
	return ok
}

// prefix returns up to limit SKUs starting with p, in sorted order.
// limit <= 0 means no limit; an empty prefix matches everything.
func (ix *index) prefix(p string, limit int) []string {
	p = models.NormalizeSKU(p)
	start := sort.SearchStrings(ix.sorted, p)

	var result []string
	for i := start; i < len(ix.sorted); i++ {
		if !strings.HasPrefix(ix.sorted[i], p) {
			break
		}
		result = append(result, ix.sorted[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

func (ix *index) all() []models.ReferenceEntry {
	result := make([]models.ReferenceEntry, 0, len(ix.sorted))
	for _, key := range ix.sorted {
		result = append(result, ix.entries[key])
	}
	return result
}

func (ix *index) len() int {
	return len(ix.entries)
}
