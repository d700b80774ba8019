package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasur/inventory-cli/internal/model"
)

func TestBuildIndex_AllAliasesRegistered(t *testing.T) {
	entries := []model.CatalogEntry{
		{ID: "p1", SKU: "SKU-1", Aliases: []string{"REF-1", "4058000"}, Price: decimal.NewFromInt(100), Stock: 5},
	}
	idx := BuildIndex(entries)
	assert.Equal(t, 1, idx.Len())

	for _, id := range []string{"SKU-1", "sku-1", " ref-1 ", "4058000"} {
		entry, ok := idx.Lookup(id)
		require.True(t, ok, "identifier %q should resolve", id)
		assert.Equal(t, "p1", entry.ID)
	}
}

func TestBuildIndex_EmptyAliasesSkipped(t *testing.T) {
	idx := BuildIndex([]model.CatalogEntry{
		{ID: "p1", SKU: "A", Aliases: []string{"", "  "}},
	})
	_, ok := idx.Lookup("")
	assert.False(t, ok)
}

func TestBuildIndex_DuplicateAliasLastWriteWins(t *testing.T) {
	entries := []model.CatalogEntry{
		{ID: "p1", SKU: "SHARED"},
		{ID: "p2", SKU: "SHARED"},
	}
	idx := BuildIndex(entries)

	entry, ok := idx.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, "p2", entry.ID, "later entry in fetch order wins")

	diags := idx.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagDuplicateAlias, diags[0].Code)
	assert.Contains(t, diags[0].Reason, "p1")
	assert.Contains(t, diags[0].Reason, "p2")
}

func TestBuildIndex_SameEntryRepeatedAliasIsNotADuplicate(t *testing.T) {
	idx := BuildIndex([]model.CatalogEntry{
		{ID: "p1", SKU: "A-1", Aliases: []string{"a-1"}},
	})
	assert.Empty(t, idx.Diagnostics())
}

func TestLookup_NoFuzzyMatching(t *testing.T) {
	idx := BuildIndex([]model.CatalogEntry{{ID: "p1", SKU: "ABC-100"}})
	_, ok := idx.Lookup("ABC100")
	assert.False(t, ok)
}
