package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/db"
	"github.com/sells-group/autoapply/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, url, job, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"finish_run":        `UPDATE runs SET status = $1, result = $2, error = $3, updated_at = $4 WHERE id = $5`,
	"get_run":           `SELECT id, job, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url        TEXT NOT NULL,
	job        JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	question        TEXT NOT NULL,
	control_kind    TEXT NOT NULL,
	structural_id   TEXT NOT NULL DEFAULT '',
	requested_value JSONB,
	applied         BOOLEAN NOT NULL DEFAULT false,
	reason          TEXT NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_reason ON run_outcomes(reason);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, job model.Job) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal job")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, url, job, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, job.URL, jobJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Job:       job,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult, runErr string) error {
	var resultJSON []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		resultJSON = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), resultJSON, runErr, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, job, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, job, status, result, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, argIdx)
		args = append(args, filter.URL)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// outcomesUpsert makes SaveOutcomes idempotent per (run_id, seq).
var outcomesUpsert = db.UpsertConfig{
	Table:        "run_outcomes",
	Columns:      outcomeColumns,
	ConflictKeys: []string{"run_id", "seq"},
}

func (s *PostgresStore) SaveOutcomes(ctx context.Context, runID string, outcomes []model.FillOutcome) error {
	rows := make([][]any, 0, len(outcomes))
	for i, o := range outcomes {
		row, err := outcomeRow(runID, i, o)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if _, err := db.BulkUpsert(ctx, s.pool, outcomesUpsert, rows); err != nil {
		return eris.Wrapf(err, "postgres: save outcomes %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]model.FillOutcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question, control_kind, structural_id, requested_value, applied, reason, note, error, duration_ms
		 FROM run_outcomes WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes %s", runID)
	}
	defer rows.Close()

	var out []model.FillOutcome
	for rows.Next() {
		var o model.FillOutcome
		var kind, reason string
		var value []byte
		if err := rows.Scan(&o.Descriptor.Question, &kind, &o.Descriptor.StructuralID,
			&value, &o.Applied, &reason, &o.Note, &o.Error, &o.DurationMS); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		o.Descriptor.Kind = model.ControlKind(kind)
		o.Reason = model.FillReason(reason)
		if len(value) > 0 {
			if err := json.Unmarshal(value, &o.RequestedValue); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal requested value")
			}
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := newStats()
	if err := s.countInto(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`, func(k string, n int64) {
		st.ByStatus[model.RunStatus(k)] = int(n)
		st.TotalRuns += int(n)
	}); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, `SELECT reason, COUNT(*) FROM run_outcomes GROUP BY reason`, func(k string, n int64) {
		st.ByReason[model.FillReason(k)] = int(n)
	}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *PostgresStore) countInto(ctx context.Context, query string, fn func(string, int64)) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return eris.Wrap(err, "postgres: stats")
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return eris.Wrap(err, "postgres: scan stats")
		}
		fn(k, n)
	}
	return eris.Wrap(rows.Err(), "postgres: stats iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var jobJSON, resultJSON []byte

	err := row.Scan(&r.ID, &jobJSON, &status, &resultJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(jobJSON, &r.Job); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal job")
	}
	if resultJSON != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
