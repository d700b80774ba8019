package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasur/inventory-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "cli")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	report := &model.RunReport{
		StartedAt:   time.Now().UTC().Add(-time.Minute),
		FinishedAt:  time.Now().UTC(),
		CatalogSize: 120,
		Files:       []model.FileSummary{{Name: "precios.csv", RowsParsed: 10, Matched: 8}},
		Ops: []model.Op{
			{Kind: model.OpPrice, SKU: "AB-1", Applied: true},
			{Kind: model.OpStock, SKU: "AB-1", Delta: -3, Applied: true},
		},
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, report))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Report)
	assert.Equal(t, 120, got.Report.CatalogSize)
	require.Len(t, got.Report.Ops, 2)
	assert.Equal(t, "AB-1", got.Report.Ops[0].SKU)
}

func TestSQLiteCompleteRunNotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CompleteRun(context.Background(), "missing-id", model.RunStatusComplete, &model.RunReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, "cli")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "webhook")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, first.ID, model.RunStatusComplete, &model.RunReport{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteFileStates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	states, err := s.GetFileStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveFileStates(ctx, []model.FileState{
		{Path: "/inventario/a.csv", ServerModified: first},
		{Path: "/inventario/b.xlsx", ServerModified: first},
	}))

	states, err = s.GetFileStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)

	// Upsert retains one row per path with the newest timestamp.
	second := first.Add(2 * time.Hour)
	require.NoError(t, s.SaveFileStates(ctx, []model.FileState{
		{Path: "/inventario/a.csv", ServerModified: second},
	}))

	states, err = s.GetFileStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	byPath := map[string]time.Time{}
	for _, fs := range states {
		byPath[fs.Path] = fs.ServerModified.UTC()
	}
	assert.True(t, byPath["/inventario/a.csv"].Equal(second))
	assert.True(t, byPath["/inventario/b.xlsx"].Equal(first))
}

func TestSQLiteSaveFileStatesEmpty(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.SaveFileStates(context.Background(), nil))
}
