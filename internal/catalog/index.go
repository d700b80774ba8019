package catalog

import (
	"fmt"
	"strings"

	"github.com/velasur/inventory-cli/internal/model"
)

// Index maps every normalized identifier alias to the catalog entry it
// belongs to. Built once per run; lookups are exact normalized-string
// matches, no fuzzy matching. When two entries share an alias the one later
// in fetch order wins — an inherited limitation surfaced as a diagnostic
// rather than resolved, since no business tie-break rule exists.
type Index struct {
	byAlias map[string]*model.CatalogEntry
	count   int
	diags   []model.Diagnostic
}

// BuildIndex registers every non-empty alias of each entry.
func BuildIndex(entries []model.CatalogEntry) *Index {
	idx := &Index{
		byAlias: make(map[string]*model.CatalogEntry, len(entries)),
		count:   len(entries),
	}

	for i := range entries {
		entry := &entries[i]
		registered := make(map[string]struct{}, len(entry.Aliases)+1)
		for _, alias := range append([]string{entry.SKU}, entry.Aliases...) {
			key := NormalizeIdentifier(alias)
			if key == "" {
				continue
			}
			if _, dup := registered[key]; dup {
				continue // same entry listing an identifier twice is harmless
			}
			registered[key] = struct{}{}

			if prev, ok := idx.byAlias[key]; ok && prev != entry {
				idx.diags = append(idx.diags, model.Diagnostic{
					Code: model.DiagDuplicateAlias,
					SKU:  alias,
					Reason: fmt.Sprintf("identifier %q is shared by products %s and %s; keeping the later one",
						alias, prev.ID, entry.ID),
				})
			}
			idx.byAlias[key] = entry
		}
	}

	return idx
}

// Lookup resolves an identifier to its catalog entry.
func (x *Index) Lookup(identifier string) (*model.CatalogEntry, bool) {
	entry, ok := x.byAlias[NormalizeIdentifier(identifier)]
	return entry, ok
}

// Len returns the number of catalog entries indexed.
func (x *Index) Len() int { return x.count }

// Diagnostics returns the duplicate-alias diagnostics collected at build time.
func (x *Index) Diagnostics() []model.Diagnostic { return x.diags }

// NormalizeIdentifier lowercases and trims an identifier for exact matching.
func NormalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
