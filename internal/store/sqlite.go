package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/autoapply/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	job        TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	question        TEXT NOT NULL,
	control_kind    TEXT NOT NULL,
	structural_id   TEXT NOT NULL DEFAULT '',
	requested_value TEXT,
	applied         INTEGER NOT NULL DEFAULT 0,
	reason          TEXT NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_reason ON run_outcomes(reason);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, job model.Job) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal job")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, url, job, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, job.URL, string(jobJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Job:       job,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult, runErr string) error {
	var resultJSON sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), resultJSON, runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, job, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveOutcomes(ctx context.Context, runID string, outcomes []model.FillOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin outcomes tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_outcomes
		 (run_id, seq, question, control_kind, structural_id, requested_value, applied, reason, note, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare outcome insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, o := range outcomes {
		row, err := outcomeRow(runID, i, o)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert outcome %d for run %s", i, runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit outcomes")
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]model.FillOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, control_kind, structural_id, requested_value, applied, reason, note, error, duration_ms
		 FROM run_outcomes WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.FillOutcome
	for rows.Next() {
		var o model.FillOutcome
		var value sql.NullString
		if err := rows.Scan(&o.Descriptor.Question, &o.Descriptor.Kind, &o.Descriptor.StructuralID,
			&value, &o.Applied, &o.Reason, &o.Note, &o.Error, &o.DurationMS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		if value.Valid {
			if err := json.Unmarshal([]byte(value.String), &o.RequestedValue); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal requested value")
			}
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := newStats()
	if err := s.countInto(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`, func(k string, n int) {
		st.ByStatus[model.RunStatus(k)] = n
		st.TotalRuns += n
	}); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, `SELECT reason, COUNT(*) FROM run_outcomes GROUP BY reason`, func(k string, n int) {
		st.ByReason[model.FillReason(k)] = n
	}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) countInto(ctx context.Context, query string, fn func(string, int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "sqlite: stats")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return eris.Wrap(err, "sqlite: scan stats")
		}
		fn(k, n)
	}
	return eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var jobJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &jobJSON, &r.Status, &resultJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(jobJSON), &r.Job); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal job")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

// outcomeRow flattens one outcome into the run_outcomes column order.
func outcomeRow(runID string, seq int, o model.FillOutcome) ([]any, error) {
	var value any
	if !o.RequestedValue.IsEmpty() {
		b, err := json.Marshal(o.RequestedValue)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal requested value")
		}
		value = string(b)
	}
	return []any{
		runID, seq, o.Descriptor.Question, string(o.Descriptor.Kind), o.Descriptor.StructuralID,
		value, o.Applied, string(o.Reason), o.Note, o.Error, o.DurationMS,
	}, nil
}

// outcomeColumns matches the order produced by outcomeRow.
var outcomeColumns = []string{
	"run_id", "seq", "question", "control_kind", "structural_id",
	"requested_value", "applied", "reason", "note", "error", "duration_ms",
}
