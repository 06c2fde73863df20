package sku

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DustanBaker/The-Uplink/internal/models"
)

func listOf(skus ...string) []models.ReferenceEntry {
	result := make([]models.ReferenceEntry, 0, len(skus))
	for _, s := range skus {
		result = append(result, models.ReferenceEntry{SKU: s})
	}
	return result
}

func TestIndexRebuildNormalizesAndSorts(t *testing.T) {
	ix := newIndex()
	ix.rebuild(listOf("  ef-river-2 ", "EF-DELTA-2", "ef-delta-2", ""))

	assert.Equal(t, 2, ix.len())
	assert.Equal(t, []string{"EF-DELTA-2", "EF-RIVER-2"}, ix.sorted)
	assert.True(t, ix.contains("ef-delta-2"))
	assert.True(t, ix.contains("EF-RIVER-2"))
	assert.False(t, ix.contains("EF-DELTA-3"))
}

func TestIndexInsertKeepsOrder(t *testing.T) {
	ix := newIndex()
	ix.rebuild(listOf("AAA", "CCC"))
	v := ix.version

	ix.insert(models.ReferenceEntry{SKU: "bbb"})
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, ix.sorted)
	assert.Greater(t, ix.version, v)

	// re-insert updates in place without duplicating
	ix.insert(models.ReferenceEntry{SKU: "BBB", Description: "updated"})
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, ix.sorted)
	assert.Equal(t, "updated", ix.entries["BBB"].Description)
}

func TestIndexRemove(t *testing.T) {
	ix := newIndex()
	ix.rebuild(listOf("AAA", "BBB", "CCC"))

	assert.True(t, ix.remove("bbb"))
	assert.Equal(t, []string{"AAA", "CCC"}, ix.sorted)
	assert.False(t, ix.remove("BBB"))
	assert.Equal(t, 2, ix.len())
}

func TestIndexPrefix(t *testing.T) {
	ix := newIndex()
	ix.rebuild(listOf("EF-DELTA-2", "EF-DELTA-3", "EF-RIVER-2", "HALO-CAM-1"))

	assert.Equal(t, []string{"EF-DELTA-2", "EF-DELTA-3"}, ix.prefix("ef-delta", 0))
	assert.Equal(t, []string{"EF-DELTA-2"}, ix.prefix("EF-", 1))
	assert.Empty(t, ix.prefix("ZZ", 0))
	assert.Len(t, ix.prefix("", 0), 4)
}

func TestIndexAllSorted(t *testing.T) {
	ix := newIndex()
	ix.rebuild(listOf("CCC", "AAA"))

	all := ix.all()
	assert.Equal(t, "AAA", all[0].SKU)
	assert.Equal(t, "CCC", all[1].SKU)
}
