// Package session runs one application end to end: open the page, enter the
// form, traverse it, then persist the artifact and run history.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/config"
	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/fill"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
	"github.com/sells-group/autoapply/internal/section"
	"github.com/sells-group/autoapply/internal/store"
	"github.com/sells-group/autoapply/internal/traverse"
)

// Entry affordances clicked, in order, before the form appears.
var EntrySelectors = []string{
	`a[data-automation-id="adventureButton"]`,
	`a[data-automation-id="applyManually"]`,
}

// ErrNoFormRoot is returned when the application form never appears.
var ErrNoFormRoot = eris.New("session: form root not found")

// Page is a document that can be navigated and released.
type Page interface {
	dom.Document
	Goto(ctx context.Context, url string) error
	Close() error
}

// Opener creates an isolated page per session.
type Opener interface {
	NewPage(ctx context.Context) (Page, error)
}

type browserOpener struct {
	b *dom.Browser
}

func (o browserOpener) NewPage(ctx context.Context) (Page, error) {
	p, err := o.b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FromBrowser adapts a launched browser to Opener.
func FromBrowser(b *dom.Browser) Opener {
	return browserOpener{b: b}
}

// ArtifactWriter persists run artifacts and returns their locations.
type ArtifactWriter interface {
	Write(ctx context.Context, a *model.RunArtifact) ([]string, error)
}

// Reporter receives the final outcome of each run.
type Reporter interface {
	Report(ctx context.Context, job model.Job, result *model.RunResult, runErr error) error
}

// Deps are the collaborators shared by every session of a batch.
type Deps struct {
	Opener    Opener
	Oracle    oracle.Oracle
	Profile   *profile.Profile
	Artifacts ArtifactWriter
	// Store and Reporter are optional.
	Store    store.Store
	Reporter Reporter
}

// Options tune a session.
type Options struct {
	Settle   time.Duration
	Policy   fill.Policy
	Submit   bool
	MaxPages int
	Now      func() time.Time
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Settle:   time.Duration(cfg.Browser.SettleMS) * time.Millisecond,
		Policy:   fill.Policy(cfg.Fill.RadioFallback),
		Submit:   cfg.Traverse.Submit,
		MaxPages: cfg.Traverse.MaxPages,
	}
}

// Runner executes sessions. It is safe for concurrent use; every call to Run
// owns its own page and state.
type Runner struct {
	deps Deps
	opts Options
}

// New creates a Runner.
func New(deps Deps, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == "" {
		opts.Policy = fill.PolicyFirst
	}
	return &Runner{deps: deps, opts: opts}
}

// Run applies to one job. A returned error means the session failed.
func (r *Runner) Run(ctx context.Context, job model.Job) (*model.RunResult, error) {
	runID := r.begin(ctx, job)
	log := zap.L().With(zap.String("url", job.URL), zap.String("run_id", runID))
	log.Info("session: start")
	start := r.opts.Now()

	state, err := r.apply(ctx, job, log)

	// Persistence outlives a cancelled or timed-out session.
	pctx := context.WithoutCancel(ctx)
	var result *model.RunResult
	if state != nil {
		result = r.persist(pctx, runID, job, state, log)
	}
	r.finish(pctx, runID, job, result, err, log)

	fields := []zap.Field{zap.Duration("elapsed", r.opts.Now().Sub(start))}
	if err != nil {
		log.Error("session: failed", append(fields, zap.Error(err))...)
		return result, err
	}
	log.Info("session: done", append(fields,
		zap.Bool("submitted", result.Submitted),
		zap.Int("pages", result.Pages),
		zap.Int("questions", result.TotalQuestions),
	)...)
	return result, nil
}

// apply drives the browser. A nil state means nothing was traversed.
func (r *Runner) apply(ctx context.Context, job model.Job, log *zap.Logger) (*model.SessionState, error) {
	page, err := r.deps.Opener.NewPage(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: open page")
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debug("session: close page", zap.Error(cerr))
		}
	}()

	if err := page.Goto(ctx, job.URL); err != nil {
		return nil, eris.Wrap(err, "session: navigate")
	}
	r.enter(ctx, page, log)

	root, err := page.Query(ctx, nil, traverse.RootSelector)
	if err != nil || root == nil {
		return nil, ErrNoFormRoot
	}

	ex := extract.New(page, extract.WithSettle(r.opts.Settle), extract.WithLogger(log))
	resolver := oracle.NewResolver(r.deps.Oracle, log)
	filler := fill.New(page,
		fill.WithPolicy(r.opts.Policy),
		fill.WithSettle(r.opts.Settle),
		fill.WithLogger(log),
	)

	var sections traverse.Sections
	var plan func(int) traverse.Plan
	if r.deps.Profile != nil {
		sections = section.New(ex, resolver, filler, r.deps.Profile, r.opts.Settle, log)
		plan = traverse.ProfilePlan(r.deps.Profile)
	}

	orch := traverse.New(ex, resolver, filler, sections, traverse.Options{
		Submit:   r.opts.Submit,
		MaxPages: r.opts.MaxPages,
		Settle:   r.opts.Settle,
		Now:      r.opts.Now,
		Plan:     plan,
	}, log)
	return orch.Run(ctx)
}

// enter clicks the entry affordances that are present.
func (r *Runner) enter(ctx context.Context, page Page, log *zap.Logger) {
	for _, sel := range EntrySelectors {
		el, err := page.Query(ctx, nil, sel)
		if err != nil || el == nil {
			continue
		}
		if err := page.Click(ctx, el); err != nil {
			log.Debug("session: entry click", zap.String("selector", sel), zap.Error(err))
			continue
		}
		_ = page.Settle(ctx, r.opts.Settle)
	}
}

// begin records the run and returns its id.
func (r *Runner) begin(ctx context.Context, job model.Job) string {
	if r.deps.Store == nil {
		return uuid.New().String()
	}
	run, err := r.deps.Store.CreateRun(ctx, job)
	if err != nil {
		zap.L().Warn("session: create run", zap.String("url", job.URL), zap.Error(err))
		return uuid.New().String()
	}
	if err := r.deps.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("session: mark running", zap.String("run_id", run.ID), zap.Error(err))
	}
	return run.ID
}

// persist writes the artifact and outcomes and summarizes the run.
func (r *Runner) persist(ctx context.Context, runID string, job model.Job, state *model.SessionState, log *zap.Logger) *model.RunResult {
	art := model.NewRunArtifact(runID, job.URL, state, r.opts.Now())

	var uris []string
	if r.deps.Artifacts != nil {
		var err error
		if uris, err = r.deps.Artifacts.Write(ctx, art); err != nil {
			log.Error("session: write artifact", zap.Error(err))
		}
	}
	if r.deps.Store != nil {
		if err := r.deps.Store.SaveOutcomes(ctx, runID, state.Outcomes); err != nil {
			log.Warn("session: save outcomes", zap.Error(err))
		}
	}
	return model.NewRunResult(art, uris)
}

func (r *Runner) finish(ctx context.Context, runID string, job model.Job, result *model.RunResult, runErr error, log *zap.Logger) {
	if r.deps.Store != nil {
		status, msg := StatusOf(result, runErr), ""
		if runErr != nil {
			msg = runErr.Error()
		}
		if err := r.deps.Store.FinishRun(ctx, runID, status, result, msg); err != nil {
			log.Warn("session: finish run", zap.Error(err))
		}
	}
	if r.deps.Reporter != nil {
		if err := r.deps.Reporter.Report(ctx, job, result, runErr); err != nil {
			log.Warn("session: report", zap.Error(err))
		}
	}
}

// StatusOf maps a finished run to its stored status.
func StatusOf(result *model.RunResult, runErr error) model.RunStatus {
	switch {
	case runErr != nil:
		return model.RunStatusFailed
	case result != nil && result.Submitted:
		return model.RunStatusSubmitted
	default:
		return model.RunStatusCompleted
	}
}
