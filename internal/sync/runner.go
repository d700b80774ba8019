// Package sync orchestrates one inventory reconciliation run: list new
// files from the remote folder, diff them against the ERP catalog, apply
// the resulting updates, and record and report the outcome.
package sync

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/catalog"
	"github.com/velasur/inventory-cli/internal/fetcher"
	"github.com/velasur/inventory-cli/internal/model"
	"github.com/velasur/inventory-cli/internal/notify"
	"github.com/velasur/inventory-cli/internal/source"
	"github.com/velasur/inventory-cli/internal/store"
	"github.com/velasur/inventory-cli/pkg/holded"
)

// Options tunes a Runner.
type Options struct {
	TempDir           string
	AllowedExtensions []string
	MaxFileSizeMB     int
	WarehouseID       string
	Aliases           catalog.AliasTable
	// DryRun plans operations without calling the ERP.
	DryRun bool
}

// ErrRunInProgress is returned by Run when another run holds the single
// run slot. Stock movements are additive, so two overlapping runs would
// post the same delta twice.
var ErrRunInProgress = eris.New("sync: run already in progress")

// Runner wires the source, catalog, ERP client, store, and notifier into
// a single run loop. At most one run executes at a time.
type Runner struct {
	src      source.Source
	client   holded.Client
	store    store.Store
	notifier notify.Notifier
	opts     Options
	busy     atomic.Bool
}

// NewRunner creates a Runner. The notifier may be nil when no notification
// channel is configured.
func NewRunner(src source.Source, client holded.Client, st store.Store, notifier notify.Notifier, opts Options) *Runner {
	if opts.Aliases == nil {
		opts.Aliases = catalog.DefaultAliases()
	}
	return &Runner{src: src, client: client, store: st, notifier: notifier, opts: opts}
}

// Busy reports whether a run is currently executing.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Run executes a full sync pass. Absence of new files is a normal outcome:
// the run completes quietly with status no_files and no notification.
// Overlapping calls return ErrRunInProgress without creating a run.
func (r *Runner) Run(ctx context.Context, trigger string) (*model.Run, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.busy.Store(false)

	run, err := r.store.CreateRun(ctx, trigger)
	if err != nil {
		return nil, eris.Wrap(err, "sync: create run")
	}

	report := &model.RunReport{StartedAt: time.Now().UTC()}

	processed, err := r.execute(ctx, report)
	if err != nil {
		report.Error = err.Error()
		report.FinishedAt = time.Now().UTC()
		run.Status = model.RunStatusFailed
		run.Report = report
		if storeErr := r.store.CompleteRun(ctx, run.ID, model.RunStatusFailed, report); storeErr != nil {
			zap.L().Error("sync: persist failed run", zap.Error(storeErr))
		}
		if r.notifier != nil {
			if notifyErr := r.notifier.NotifyError(ctx, run.ID, err); notifyErr != nil {
				zap.L().Error("sync: error notification failed", zap.Error(notifyErr))
			}
		}
		return run, err
	}

	report.FinishedAt = time.Now().UTC()

	status := model.RunStatusComplete
	if len(report.Files) == 0 {
		status = model.RunStatusNoFiles
	}
	run.Status = status
	run.Report = report

	if err := r.store.CompleteRun(ctx, run.ID, status, report); err != nil {
		return run, eris.Wrap(err, "sync: persist run")
	}

	if len(processed) > 0 && !r.opts.DryRun {
		if err := r.store.SaveFileStates(ctx, source.States(processed)); err != nil {
			return run, eris.Wrap(err, "sync: save file states")
		}
	}

	if status == model.RunStatusComplete && r.notifier != nil {
		if err := r.notifier.NotifyReport(ctx, report); err != nil {
			zap.L().Error("sync: report notification failed", zap.Error(err))
		}
	}

	zap.L().Info("sync: run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
		zap.Int("files", len(report.Files)),
		zap.Int("price_updates", report.PriceUpdates()),
		zap.Int("stock_updates", report.StockUpdates()),
		zap.Int("diagnostics", len(report.Diagnostics)))

	return run, nil
}

// execute performs the fallible middle of a run and fills the report.
// It returns the remote files that were processed.
func (r *Runner) execute(ctx context.Context, report *model.RunReport) ([]source.RemoteFile, error) {
	states, err := r.store.GetFileStates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sync: load file states")
	}
	known := make(map[string]time.Time, len(states))
	for _, fs := range states {
		known[fs.Path] = fs.ServerModified
	}

	listing, err := r.src.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sync: list source")
	}

	filter := source.Filter{
		Extensions: r.opts.AllowedExtensions,
		MaxSize:    int64(r.opts.MaxFileSizeMB) * 1024 * 1024,
		Known:      known,
	}
	files := filter.Apply(listing)
	if len(files) == 0 {
		zap.L().Info("sync: no new files, nothing to do")
		return nil, nil
	}

	zap.L().Info("sync: new files found", zap.Int("count", len(files)))

	idx, err := r.loadCatalog(ctx, report)
	if err != nil {
		return nil, err
	}

	tempDir := r.opts.TempDir
	if tempDir == "" {
		dir, err := os.MkdirTemp("", "inventory-sync-")
		if err != nil {
			return nil, eris.Wrap(err, "sync: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck
		tempDir = dir
	}

	var processed []source.RemoteFile
	for _, rf := range files {
		local, err := r.src.Download(ctx, rf, tempDir)
		if err != nil {
			// A file that cannot be fetched is recorded and retried on
			// the next run; the rest of the batch proceeds.
			zap.L().Error("sync: download failed",
				zap.String("file", rf.Path), zap.Error(err))
			report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
				Code:   model.DiagFileRejected,
				File:   rf.Name,
				Reason: "download failed: " + err.Error(),
			})
			continue
		}

		r.processFile(ctx, local, rf.Name, idx, report)
		processed = append(processed, rf)
	}

	return processed, nil
}

// RunFile reconciles a single local file against the catalog, bypassing the
// remote source and file-state tracking. Used by the file subcommand.
func (r *Runner) RunFile(ctx context.Context, path string) (*model.RunReport, error) {
	report := &model.RunReport{StartedAt: time.Now().UTC()}

	idx, err := r.loadCatalog(ctx, report)
	if err != nil {
		return nil, err
	}

	r.processFile(ctx, path, filepath.Base(path), idx, report)
	report.FinishedAt = time.Now().UTC()

	return report, nil
}

// loadCatalog fetches the ERP catalog and builds the lookup index.
func (r *Runner) loadCatalog(ctx context.Context, report *model.RunReport) (*catalog.Index, error) {
	products, err := r.client.ListProducts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sync: fetch catalog")
	}

	entries := CatalogEntries(products, r.opts.WarehouseID)
	idx := catalog.BuildIndex(entries)
	report.CatalogSize = idx.Len()
	report.Diagnostics = append(report.Diagnostics, idx.Diagnostics()...)

	zap.L().Info("sync: catalog loaded",
		zap.Int("products", len(products)),
		zap.Int("entries", idx.Len()))

	return idx, nil
}

// processFile parses one file, reconciles it, applies the resulting
// operations, and folds everything into the report. File-level problems
// become diagnostics; they never abort the run.
func (r *Runner) processFile(ctx context.Context, path, name string, idx *catalog.Index, report *model.RunReport) {
	table, err := fetcher.ReadFile(path)
	if err != nil {
		zap.L().Error("sync: unreadable file", zap.String("file", name), zap.Error(err))
		report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
			Code:   model.DiagFileRejected,
			File:   name,
			Reason: "unreadable file: " + err.Error(),
		})
		return
	}

	cm, diags, err := catalog.MapColumns(table.Header, r.opts.Aliases)
	report.Diagnostics = append(report.Diagnostics, diags...)
	if err != nil {
		zap.L().Warn("sync: file rejected", zap.String("file", name), zap.Error(err))
		report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
			Code:   model.DiagFileRejected,
			File:   name,
			Reason: err.Error(),
		})
		return
	}

	products, diags := catalog.ExtractProducts(cm, table.Rows, name)
	report.Diagnostics = append(report.Diagnostics, diags...)

	result := catalog.Reconcile(products, idx, catalog.Options{WarehouseID: r.opts.WarehouseID})
	report.Diagnostics = append(report.Diagnostics, result.Diagnostics...)
	report.Files = append(report.Files, model.FileSummary{
		Name:       name,
		RowsParsed: len(products),
		Matched:    result.Matched,
	})

	r.applyOps(ctx, result.Ops, report)
}

// applyOps issues each operation against the ERP exactly once, in order.
// A failed call marks the op and adds a diagnostic; later ops still run.
func (r *Runner) applyOps(ctx context.Context, ops []model.Op, report *model.RunReport) {
	for _, op := range ops {
		if r.opts.DryRun {
			report.Ops = append(report.Ops, op)
			continue
		}

		var err error
		switch op.Kind {
		case model.OpPrice:
			err = r.client.UpdatePrice(ctx, op.ProductID, op.VariantID, op.NewPrice, op.IsOffer)
		case model.OpStock:
			err = r.client.UpdateStock(ctx, holded.StockMovement{
				ProductID:   op.ProductID,
				VariantID:   op.VariantID,
				WarehouseID: op.WarehouseID,
				Units:       op.Delta,
			})
		}

		if err != nil {
			op.Error = err.Error()
			zap.L().Error("sync: update failed",
				zap.String("kind", string(op.Kind)),
				zap.String("sku", op.SKU),
				zap.Error(err))
			report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
				Code:   model.DiagApplyFailed,
				SKU:    op.SKU,
				Row:    op.Row,
				Reason: err.Error(),
			})
		} else {
			op.Applied = true
		}
		report.Ops = append(report.Ops, op)
	}
}

// CatalogEntries flattens the ERP product listing into lookup entries.
// Products with variants produce one entry per variant; the variant SKU and
// barcode both resolve to it. Fractional ERP stock figures truncate.
func CatalogEntries(products []holded.Product, warehouseID string) []model.CatalogEntry {
	var entries []model.CatalogEntry
	for _, p := range products {
		if len(p.Variants) > 0 {
			for _, v := range p.Variants {
				if v.SKU == "" && v.Barcode == "" {
					continue
				}
				entries = append(entries, model.CatalogEntry{
					ID:          p.ID,
					VariantID:   v.ID,
					SKU:         firstNonEmpty(v.SKU, v.Barcode),
					Name:        p.Name,
					Aliases:     aliasList(v.SKU, v.Barcode),
					Price:       v.Price,
					Stock:       int(v.Stock),
					WarehouseID: warehouseID,
				})
			}
			continue
		}

		if p.SKU == "" && p.Barcode == "" {
			continue
		}
		entries = append(entries, model.CatalogEntry{
			ID:          p.ID,
			SKU:         firstNonEmpty(p.SKU, p.Barcode),
			Name:        p.Name,
			Aliases:     aliasList(p.SKU, p.Barcode),
			Price:       p.Price,
			Stock:       int(p.Stock),
			WarehouseID: warehouseID,
		})
	}
	return entries
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func aliasList(primary, barcode string) []string {
	if barcode == "" || barcode == primary {
		return nil
	}
	return []string{barcode}
}
