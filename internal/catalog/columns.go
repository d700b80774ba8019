// Package catalog implements the reconciliation core: header mapping, cell
// normalization, the catalog identifier index, and the diff engine that
// turns parsed rows into update operations.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/velasur/inventory-cli/internal/model"
)

// Field names a semantic column in an inventory file.
type Field string

const (
	FieldSKU   Field = "sku"
	FieldName  Field = "name"
	FieldPrice Field = "price"
	FieldOffer Field = "offer_price"
	FieldStock Field = "stock"
)

// fieldOrder fixes the resolution order: a header claimed by an earlier
// field is not reconsidered for a later one.
var fieldOrder = []Field{FieldSKU, FieldName, FieldPrice, FieldOffer, FieldStock}

// AliasTable maps each semantic field to its accepted header aliases, in
// priority order. Matching is case-insensitive on trimmed headers.
type AliasTable map[Field][]string

// DefaultAliases returns the built-in alias table. Suppliers send files in
// Spanish and English with no agreed header convention.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldSKU:   {"sku", "codigo", "código", "code", "product_code", "item_code", "ref", "referencia", "item"},
		FieldName:  {"name", "nombre", "product_name", "producto", "title", "titulo", "description", "descripcion", "desc"},
		FieldPrice: {"price", "precio", "cost", "coste", "amount", "importe", "evp", "pvp"},
		FieldOffer: {"oferta", "offer", "offer price", "special_price", "promo_price", "precio oferta"},
		FieldStock: {"stock", "quantity", "cantidad", "units", "unidades", "inventory", "stock qty", "qty"},
	}
}

// LoadAliases reads an alias table from a YAML file, merging over the
// defaults: fields present in the file replace the built-in list wholesale.
func LoadAliases(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read alias file")
	}

	var override map[string][]string
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrap(err, "catalog: parse alias file")
	}

	table := DefaultAliases()
	for field, aliases := range override {
		switch f := Field(field); f {
		case FieldSKU, FieldName, FieldPrice, FieldOffer, FieldStock:
			table[f] = aliases
		default:
			return nil, eris.Errorf("catalog: unknown field %q in alias file", field)
		}
	}
	return table, nil
}

// ErrNoSKUColumn marks a file rejected because no header matched any SKU
// alias. The whole file is unusable; reconciliation is never invoked.
var ErrNoSKUColumn = errors.New("no SKU column resolvable")

// ColumnMap is the result of header resolution: semantic field to the
// zero-based column index it came from.
type ColumnMap struct {
	cols    map[Field]int
	headers []string
}

// MapColumns resolves the semantic fields against the ordered header list.
// For each field the first unclaimed header (in file column order) matching
// any alias wins. SKU is mandatory; its absence rejects the file wholesale
// with an error naming every header seen. Duplicate headers produce a
// diagnostic and only the first occurrence is considered.
func MapColumns(headers []string, aliases AliasTable) (*ColumnMap, []model.Diagnostic, error) {
	if aliases == nil {
		aliases = DefaultAliases()
	}

	var diags []model.Diagnostic

	normalized := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	duplicate := make([]bool, len(headers))
	for i, h := range headers {
		n := normalizeHeader(h)
		normalized[i] = n
		if n == "" {
			continue
		}
		if first, ok := seen[n]; ok {
			duplicate[i] = true
			diags = append(diags, model.Diagnostic{
				Code:   model.DiagDuplicateHeader,
				Reason: fmt.Sprintf("header %q in column %d duplicates column %d; ignored", h, i+1, first+1),
			})
			continue
		}
		seen[n] = i
	}

	cols := make(map[Field]int, len(fieldOrder))
	claimed := make([]bool, len(headers))

	for _, field := range fieldOrder {
		aliasSet := make(map[string]struct{}, len(aliases[field]))
		for _, a := range aliases[field] {
			aliasSet[normalizeHeader(a)] = struct{}{}
		}
		for i, n := range normalized {
			if claimed[i] || duplicate[i] || n == "" {
				continue
			}
			if _, ok := aliasSet[n]; ok {
				cols[field] = i
				claimed[i] = true
				break
			}
		}
	}

	if _, ok := cols[FieldSKU]; !ok {
		return nil, diags, eris.Wrapf(ErrNoSKUColumn, "headers seen: %s", strings.Join(headers, ", "))
	}

	return &ColumnMap{cols: cols, headers: headers}, diags, nil
}

// Column returns the column index resolved for the field, if any.
func (m *ColumnMap) Column(field Field) (int, bool) {
	i, ok := m.cols[field]
	return i, ok
}

// Header returns the original header the field resolved to, or "".
func (m *ColumnMap) Header(field Field) string {
	if i, ok := m.cols[field]; ok && i < len(m.headers) {
		return m.headers[i]
	}
	return ""
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
