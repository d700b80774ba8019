package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpKind discriminates the update operation variants.
type OpKind string

const (
	OpPrice OpKind = "price"
	OpStock OpKind = "stock"
)

// Op is a single update operation produced by the reconciliation engine.
// Price ops carry NewPrice/OldPrice/IsOffer; stock ops carry Delta (signed,
// applied additively by the ERP — never an absolute target) plus the
// warehouse the movement belongs to.
type Op struct {
	Kind      OpKind `json:"kind"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	SKU       string `json:"sku"`
	Row       int    `json:"row,omitempty"`

	NewPrice decimal.Decimal `json:"new_price,omitempty"`
	OldPrice decimal.Decimal `json:"old_price,omitempty"`
	IsOffer  bool            `json:"is_offer,omitempty"`

	WarehouseID string `json:"warehouse_id,omitempty"`
	Delta       int    `json:"delta,omitempty"`
	OldStock    int    `json:"old_stock,omitempty"`
	NewStock    int    `json:"new_stock,omitempty"`

	// Filled in by the apply step.
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// DiagCode classifies a diagnostic.
type DiagCode string

const (
	DiagFileRejected      DiagCode = "file_rejected"
	DiagUnmatchedSKU      DiagCode = "unmatched_sku"
	DiagMissingSKU        DiagCode = "missing_sku"
	DiagInvalidStockValue DiagCode = "invalid_stock_value"
	DiagInvalidPriceValue DiagCode = "invalid_price_value"
	DiagDuplicateHeader   DiagCode = "duplicate_header"
	DiagDuplicateAlias    DiagCode = "duplicate_alias"
	DiagApplyFailed       DiagCode = "apply_failed"
)

// Diagnostic records a row- or file-level problem with enough context to
// locate the offending input.
type Diagnostic struct {
	Code   DiagCode `json:"code"`
	File   string   `json:"file,omitempty"`
	Row    int      `json:"row,omitempty"`
	SKU    string   `json:"sku,omitempty"`
	Reason string   `json:"reason"`
}

// FileSummary aggregates per-file counters for the report.
type FileSummary struct {
	Name       string `json:"name"`
	RowsParsed int    `json:"rows_parsed"`
	Matched    int    `json:"matched"`
}

// RunReport is the aggregate outcome of one sync run: ordered operations
// with their apply results plus every diagnostic collected along the way.
// Built incrementally during the run, immutable once handed to the notifier.
type RunReport struct {
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Files       []FileSummary `json:"files,omitempty"`
	CatalogSize int           `json:"catalog_size"`
	Ops         []Op          `json:"ops,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// PriceUpdates counts successfully applied price operations.
func (r *RunReport) PriceUpdates() int { return r.countApplied(OpPrice) }

// StockUpdates counts successfully applied stock operations.
func (r *RunReport) StockUpdates() int { return r.countApplied(OpStock) }

// FailedOps counts operations whose apply call failed.
func (r *RunReport) FailedOps() int {
	n := 0
	for _, op := range r.Ops {
		if op.Error != "" {
			n++
		}
	}
	return n
}

func (r *RunReport) countApplied(kind OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind && op.Applied {
			n++
		}
	}
	return n
}

// RunStatus represents the state of a stored run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusNoFiles  RunStatus = "no_files"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted sync run.
type Run struct {
	ID        string     `json:"id"`
	Trigger   string     `json:"trigger"` // "webhook", "cli", "file"
	Status    RunStatus  `json:"status"`
	Report    *RunReport `json:"report,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FileState is the "already processed" marker for one remote file: the
// server-modified timestamp observed on the last run. The sync core reads
// the full set once at run start and writes the updated set once at the end.
type FileState struct {
	Path           string    `json:"path"`
	ServerModified time.Time `json:"server_modified"`
}
