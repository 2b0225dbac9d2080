package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/jobs"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/runner"
)

var (
	batchFile   string
	batchNotion bool
	batchStart  int
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply to a list of jobs concurrently",
	Long:  "Reads jobs from a JSON, XLSX or CSV file, or from the Notion job queue with --notion, and runs one isolated session per job.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		if batchNotion {
			if err := cfg.Validate("notion"); err != nil {
				return err
			}
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		src, err := jobSource(batchNotion, batchFile)
		if err != nil {
			return err
		}
		list, err := loadJobs(ctx, src, batchStart, batchLimit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			zap.L().Info("no jobs to process")
			return nil
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats := processBatch(ctx, list, env.Session.Run)
		runner.PrintSummary(os.Stdout, stats)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "jobs", "", "job list file (default jobs.path from config)")
	batchCmd.Flags().BoolVar(&batchNotion, "notion", false, "read queued jobs from the Notion job database")
	batchCmd.Flags().IntVar(&batchStart, "start", 0, "index of the first job to process")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of jobs to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// jobSource picks the Notion queue or a job file.
func jobSource(useNotion bool, path string) (jobs.Source, error) {
	if useNotion {
		n := initNotion()
		if n == nil {
			return nil, eris.New("notion token and job database are required (AUTOAPPLY_NOTION_TOKEN, AUTOAPPLY_NOTION_JOB_DB)")
		}
		return n, nil
	}
	if path == "" {
		path = cfg.Jobs.Path
	}
	if path == "" {
		return nil, eris.New("no job list given (--jobs or jobs.path)")
	}
	return jobs.File{Path: path}, nil
}

func loadJobs(ctx context.Context, src jobs.Source, start, limit int) ([]model.Job, error) {
	list, err := src.Jobs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load jobs")
	}
	return jobs.Slice(list, start, limit), nil
}

// processBatch runs fn over list with the configured concurrency and
// per-session timeout.
func processBatch(ctx context.Context, list []model.Job, fn runner.Session) model.BatchStats {
	r := runner.New(cfg.Batch)
	return r.Run(ctx, list, fn)
}
