// Package runner runs many application sessions under a concurrency bound
// and aggregates their outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/model"
)

// Concurrency bounds.
const (
	MinConcurrent  = 1
	MaxConcurrent  = 6
	DefaultTimeout = 900 * time.Second
)

// ErrTimeout marks a session that exceeded its wall-clock budget.
var ErrTimeout = eris.New("session timed out")

// Session runs one job to completion.
type Session func(ctx context.Context, job model.Job) (*model.RunResult, error)

// Result is the outcome of one session.
type Result struct {
	Job     model.Job
	Run     *model.RunResult
	Err     error
	Elapsed time.Duration
}

// Submitted reports whether the session ended by submitting the form.
func (r Result) Submitted() bool {
	return r.Err == nil && r.Run != nil && r.Run.Submitted
}

// Runner schedules sessions.
type Runner struct {
	limit    int
	timeout  time.Duration
	log      *zap.Logger
	onResult func(Result)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// OnResult registers a callback run by the collector for each finished
// session, in completion order.
func OnResult(fn func(Result)) Option {
	return func(r *Runner) { r.onResult = fn }
}

// New creates a Runner from batch config. The concurrency limit is clamped
// to [MinConcurrent, MaxConcurrent].
func New(cfg config.BatchConfig, opts ...Option) *Runner {
	r := &Runner{
		limit:   Clamp(cfg.MaxConcurrent),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:     zap.L(),
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Clamp bounds n to the supported concurrency range.
func Clamp(n int) int {
	return min(max(n, MinConcurrent), MaxConcurrent)
}

// Limit returns the effective concurrency limit.
func (r *Runner) Limit() int { return r.limit }

// Run executes fn for every job and returns the aggregated stats. Once ctx
// is cancelled no further sessions start; sessions already running see the
// cancellation and are counted as failed.
func (r *Runner) Run(ctx context.Context, jobs []model.Job, fn Session) model.BatchStats {
	var stats model.BatchStats
	if len(jobs) == 0 {
		r.log.Info("runner: no jobs")
		return stats
	}

	r.log.Info("runner: starting batch",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", r.limit),
		zap.Duration("timeout", r.timeout),
	)

	results := make(chan Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			stats.Observe(res.Err, res.Submitted())
			if r.onResult != nil {
				r.onResult(res)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(r.limit)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results <- Result{Job: job, Err: eris.Wrap(ctx.Err(), "runner: not started")}
				return nil
			}
			results <- r.runOne(ctx, job, fn)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-done

	r.log.Info("runner: batch complete",
		zap.Int("total_processed", stats.TotalProcessed),
		zap.Int("submitted", stats.Submitted),
		zap.Int("completed_without_submission", stats.CompletedWithoutSubmission()),
		zap.Int("failed", stats.Failed),
		zap.Float64("success_rate", stats.SuccessRate()),
	)
	return stats
}

// runOne runs a single session under its own timeout. Panics become
// failures.
func (r *Runner) runOne(ctx context.Context, job model.Job, fn Session) (res Result) {
	log := r.log.With(zap.String("url", job.URL))
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res.Job = job
	defer func() {
		if p := recover(); p != nil {
			res.Err = eris.Errorf("runner: session panicked: %v", p)
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			log.Error("runner: session failed", zap.Error(res.Err), zap.Duration("elapsed", res.Elapsed))
			return
		}
		log.Info("runner: session complete",
			zap.Bool("submitted", res.Submitted()),
			zap.Duration("elapsed", res.Elapsed),
		)
	}()

	res.Run, res.Err = fn(sctx, job)
	if res.Err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.Err = eris.Wrapf(ErrTimeout, "after %s: %v", r.timeout, res.Err)
	}
	return res
}

// PrintSummary writes the batch report table.
func PrintSummary(w io.Writer, s model.BatchStats) {
	fmt.Fprintln(w, "Batch summary")
	fmt.Fprintf(w, "  %-30s %d\n", "Total processed", s.TotalProcessed)
	fmt.Fprintf(w, "  %-30s %d\n", "Submitted", s.Submitted)
	fmt.Fprintf(w, "  %-30s %d\n", "Completed without submission", s.CompletedWithoutSubmission())
	fmt.Fprintf(w, "  %-30s %d\n", "Failed", s.Failed)
	fmt.Fprintf(w, "  %-30s %.1f%%\n", "Success rate", s.SuccessRate())
}
