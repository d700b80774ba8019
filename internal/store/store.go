// Package store persists sync runs and per-file processing state.
// Two backends exist: SQLite for single-host deployments and Postgres
// for shared ones.
package store

import (
	"context"

	"github.com/velasur/inventory-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the sync job.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, trigger string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, report *model.RunReport) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// File states
	GetFileStates(ctx context.Context) ([]model.FileState, error)
	SaveFileStates(ctx context.Context, states []model.FileState) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
