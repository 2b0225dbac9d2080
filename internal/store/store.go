// Package store persists application runs and their fill outcomes.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	URL    string          `json:"url,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 100

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = eris.New("run not found")

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Stats aggregates run history.
type Stats struct {
	TotalRuns int                      `json:"total_runs"`
	ByStatus  map[model.RunStatus]int  `json:"by_status"`
	ByReason  map[model.FillReason]int `json:"by_reason"`
}

func newStats() *Stats {
	return &Stats{
		ByStatus: make(map[model.RunStatus]int),
		ByReason: make(map[model.FillReason]int),
	}
}

// Store defines the persistence interface for application runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, job model.Job) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outcomes
	SaveOutcomes(ctx context.Context, runID string, outcomes []model.FillOutcome) error
	ListOutcomes(ctx context.Context, runID string) ([]model.FillOutcome, error)

	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "autoapply.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
