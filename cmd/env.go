package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/artifact"
	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/jobs"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
	"github.com/sells-group/autoapply/internal/session"
	"github.com/sells-group/autoapply/internal/store"
	"github.com/sells-group/autoapply/pkg/anthropic"
	"github.com/sells-group/autoapply/pkg/notion"
)

// env holds the long-lived collaborators shared by every session.
type env struct {
	Store   store.Store
	Browser *dom.Browser
	Notion  *jobs.Notion
	Session *session.Runner
}

// Close releases the browser and the store.
func (e *env) Close() {
	if e.Browser != nil {
		if err := e.Browser.Close(); err != nil {
			zap.L().Warn("close browser", zap.Error(err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initStore opens the configured run store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initNotion returns the job queue when Notion credentials are configured,
// else nil.
func initNotion() *jobs.Notion {
	if cfg.Notion.Token == "" || cfg.Notion.JobDB == "" {
		return nil
	}
	return &jobs.Notion{Client: notion.NewClient(cfg.Notion.Token), DB: cfg.Notion.JobDB}
}

func initOracle() oracle.Oracle {
	for name, p := range cfg.Pricing.Anthropic {
		anthropic.SetPricing(name, anthropic.Pricing{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		})
	}
	client := anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.BaseURL)
	return oracle.NewLLM(client, cfg.Anthropic, cfg.Oracle)
}

// initEnv wires the profile, oracle, artifact sinks, run store, browser and
// optional Notion reporter into a session runner.
func initEnv(ctx context.Context) (*env, error) {
	p, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load profile")
	}

	sinks, err := artifact.FromConfig(cfg.Artifact)
	if err != nil {
		return nil, eris.Wrap(err, "init artifact sinks")
	}

	e := &env{Notion: initNotion()}
	if e.Store, err = initStore(ctx); err != nil {
		return nil, err
	}
	if e.Browser, err = dom.Launch(cfg.Browser); err != nil {
		e.Close()
		return nil, err
	}

	deps := session.Deps{
		Opener:    session.FromBrowser(e.Browser),
		Oracle:    initOracle(),
		Profile:   p,
		Artifacts: sinks,
		Store:     e.Store,
	}
	if e.Notion != nil {
		deps.Reporter = e.Notion
	}
	e.Session = session.New(deps, session.OptionsFromConfig(cfg))

	zap.L().Info("environment ready",
		zap.String("profile", cfg.Profile.Path),
		zap.String("store", cfg.Store.Driver),
		zap.Int("artifact_sinks", len(sinks)),
		zap.Bool("notion", e.Notion != nil),
	)
	return e, nil
}
