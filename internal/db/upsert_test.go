package db

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outcomesUpsert = UpsertConfig{
	Table:        "run_outcomes",
	Columns:      []string{"run_id", "seq", "question"},
	ConflictKeys: []string{"run_id", "seq"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	t.Parallel()

	n, err := BulkUpsert(context.Background(), nil, outcomesUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	t.Parallel()

	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "run_outcomes",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "run_outcomes",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "_tmp_upsert_run_outcomes" (LIKE "run_outcomes" INCLUDING DEFAULTS)`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_outcomes"}, outcomesUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("run_id", "seq") DO UPDATE SET "question" = EXCLUDED."question"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, outcomesUpsert, [][]any{{"r1", 0, "Q1"}, {"r1", 1, "Q2"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_run_outcomes"}, outcomesUpsert.Columns).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, outcomesUpsert, [][]any{{"r1", 0, "Q1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage run_outcomes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	t.Parallel()

	keysOnly := UpsertConfig{Table: "public.seen", Columns: []string{"url"}, ConflictKeys: []string{"url"}}
	assert.Equal(t,
		`INSERT INTO "public"."seen" ("url") SELECT "url" FROM "_tmp_upsert_public_seen" ON CONFLICT ("url") DO NOTHING`,
		keysOnly.upsertSQL())

	assert.Equal(t, []string{"question"}, outcomesUpsert.updateColumns())
}

func TestSanitizeTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"public"."run_outcomes"`, sanitizeTable("public.run_outcomes"))
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
