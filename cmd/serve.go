package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/runner"
	"github.com/sells-group/autoapply/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and application webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		api := newAPI(ctx, env.Store, env.Session.Run, cfg.Batch.MaxConcurrent)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		api.wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api serves run history and accepts application requests. Webhook sessions
// run in the background under ctx, bounded by a semaphore.
type api struct {
	ctx   context.Context
	store store.Store
	apply runner.Session
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
}

func newAPI(ctx context.Context, st store.Store, apply runner.Session, concurrency int) *api {
	return &api{
		ctx:   ctx,
		store: st,
		apply: apply,
		sem:   semaphore.NewWeighted(int64(runner.Clamp(concurrency))),
	}
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Get("/runs", a.listRuns)
	r.Get("/runs/{id}", a.getRun)
	r.Get("/stats", a.stats)
	r.Post("/webhook/apply", a.webhookApply)
	return r
}

// wait blocks until background sessions have finished.
func (a *api) wait() {
	a.wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		URL:    q.Get("url"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := a.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	outcomes, err := a.store.ListOutcomes(r.Context(), id)
	if err != nil {
		zap.L().Error("api: list outcomes", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list outcomes failed")
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Outcomes: outcomes})
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("api: stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type applyRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

func (a *api) webhookApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	job := model.Job{URL: req.URL, Title: req.Title, Company: req.Company}
	a.wg.Add(1)
	go a.run(job)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"url":    job.URL,
	})
}

func (a *api) run(job model.Job) {
	defer a.wg.Done()
	log := zap.L().With(zap.String("url", job.URL))

	if err := a.sem.Acquire(a.ctx, 1); err != nil {
		log.Warn("webhook session not started", zap.Error(err))
		return
	}
	defer a.sem.Release(1)

	result, err := a.apply(a.ctx, job)
	if err != nil {
		log.Error("webhook session failed", zap.Error(err))
		return
	}
	log.Info("webhook session complete",
		zap.Bool("submitted", result.Submitted),
		zap.Int("questions", result.TotalQuestions),
	)
}
