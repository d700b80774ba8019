package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsertEmptyRows(t *testing.T) {
	mock := newMockPool(t)

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "file_states",
		Columns:      []string{"path", "server_modified"},
		ConflictKeys: []string{"path"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertValidation(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{{"/a.csv", time.Now()}}

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "file_states",
		ConflictKeys: []string{"path"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "file_states",
		Columns: []string{"path"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_file_states"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_file_states"}, []string{"path", "server_modified", "updated_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "file_states" .* ON CONFLICT \("path"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	now := time.Now().UTC()
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "file_states",
		Columns:      []string{"path", "server_modified", "updated_at"},
		ConflictKeys: []string{"path"},
	}, [][]any{
		{"/inv/a.csv", now, now},
		{"/inv/b.xlsx", now, now},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
