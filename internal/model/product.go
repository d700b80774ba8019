// Package model defines the domain types shared across the sync pipeline.
package model

import (
	"github.com/shopspring/decimal"
)

// Product is one canonical row parsed from an inventory file. Only SKU is
// guaranteed to be present; the remaining fields are optional and nil/empty
// when the source file did not carry them.
type Product struct {
	SKU        string           `json:"sku"`
	Name       string           `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty"`
	Stock      *int             `json:"stock,omitempty"`
	Row        int              `json:"row"` // 1-based row number in the source file, header included
	SourceFile string           `json:"source_file,omitempty"`
}

// CatalogEntry is one product as currently known to the ERP. Built once per
// run from the catalog snapshot and never mutated afterwards.
type CatalogEntry struct {
	ID          string          `json:"id"`
	VariantID   string          `json:"variant_id,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"` // every identifier field that can match a file SKU
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
}
