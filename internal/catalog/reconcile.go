package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/velasur/inventory-cli/internal/model"
)

// DefaultEpsilon is the price comparison tolerance: differences under one
// cent are treated as equal and produce no update.
var DefaultEpsilon = decimal.New(1, -2) // 0.01

// Options configures reconciliation.
type Options struct {
	// WarehouseID is used for stock movements when the catalog entry does
	// not carry its own warehouse.
	WarehouseID string
	// Epsilon overrides the price no-op tolerance. Zero means DefaultEpsilon.
	Epsilon decimal.Decimal
}

// Result is the output of one reconciliation pass: operations in input-row
// order (price before stock within a row) plus per-row diagnostics.
type Result struct {
	Ops         []model.Op
	Diagnostics []model.Diagnostic
	Matched     int
}

// Reconcile diffs canonical rows against the catalog index and emits the
// minimal set of update operations. It never fails the whole pass: row
// problems become diagnostics and the remaining rows proceed.
func Reconcile(rows []model.Product, idx *Index, opts Options) *Result {
	eps := opts.Epsilon
	if eps.IsZero() {
		eps = DefaultEpsilon
	}

	res := &Result{}

	for _, row := range rows {
		entry, ok := idx.Lookup(row.SKU)
		if !ok {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Code:   model.DiagUnmatchedSKU,
				File:   row.SourceFile,
				Row:    row.Row,
				SKU:    row.SKU,
				Reason: fmt.Sprintf("SKU %q not found in catalog", row.SKU),
			})
			continue
		}
		res.Matched++

		if op, ok := priceOp(row, entry, eps); ok {
			res.Ops = append(res.Ops, op)
		}
		if op, ok := stockOp(row, entry, opts.WarehouseID); ok {
			res.Ops = append(res.Ops, op)
		}
	}

	return res
}

// priceOp decides the effective new price for a row and whether an update
// is needed. The offer price wins when present and strictly below the
// regular price (or when the regular price is absent). Prices within
// epsilon of the catalog are a no-op. A drop below the current catalog
// price is flagged as an offer.
func priceOp(row model.Product, entry *model.CatalogEntry, eps decimal.Decimal) (model.Op, bool) {
	var effective *decimal.Decimal
	switch {
	case row.OfferPrice != nil && (row.Price == nil || row.OfferPrice.LessThan(*row.Price)):
		effective = row.OfferPrice
	case row.Price != nil:
		effective = row.Price
	default:
		return model.Op{}, false
	}

	if effective.Sub(entry.Price).Abs().LessThanOrEqual(eps) {
		return model.Op{}, false
	}

	return model.Op{
		Kind:      model.OpPrice,
		ProductID: entry.ID,
		VariantID: entry.VariantID,
		SKU:       row.SKU,
		Row:       row.Row,
		NewPrice:  *effective,
		OldPrice:  entry.Price,
		IsOffer:   effective.LessThan(entry.Price),
	}, true
}

// stockOp emits the signed difference between the row's stock and the
// catalog's, never the absolute target. A zero delta is a no-op.
func stockOp(row model.Product, entry *model.CatalogEntry, defaultWarehouse string) (model.Op, bool) {
	if row.Stock == nil {
		return model.Op{}, false
	}

	delta := *row.Stock - entry.Stock
	if delta == 0 {
		return model.Op{}, false
	}

	warehouse := entry.WarehouseID
	if warehouse == "" {
		warehouse = defaultWarehouse
	}

	return model.Op{
		Kind:        model.OpStock,
		ProductID:   entry.ID,
		VariantID:   entry.VariantID,
		SKU:         row.SKU,
		Row:         row.Row,
		WarehouseID: warehouse,
		Delta:       delta,
		OldStock:    entry.Stock,
		NewStock:    *row.Stock,
	}, true
}
