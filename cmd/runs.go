package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect application run history",
	Long:  "Commands for listing, viewing, and summarizing application runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List application runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			URL:    url,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

// runDetail is a run with its per-field outcomes.
type runDetail struct {
	*model.Run
	Outcomes []model.FillOutcome `json:"outcomes"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		outcomes, err := st.ListOutcomes(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runDetail{Run: run, Outcomes: outcomes})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatRunStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, submitted, completed, failed)")
	runsListCmd.Flags().String("url", "", "filter by job URL")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tJOB\tSTATUS\tFIELDS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		job := r.Job.URL
		if r.Job.Title != "" {
			job = r.Job.Title
			if r.Job.Company != "" {
				job += " @ " + r.Job.Company
			}
		}
		if len(job) > 40 {
			job = job[:37] + "..."
		}

		fields := "-"
		if r.Result != nil {
			fields = fmt.Sprintf("%d/%d", r.Result.Applied, r.Result.TotalQuestions)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			job,
			r.Status,
			fields,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *store.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.TotalRuns)
	for _, status := range []model.RunStatus{
		model.RunStatusSubmitted,
		model.RunStatusCompleted,
		model.RunStatusFailed,
		model.RunStatusRunning,
		model.RunStatusQueued,
	} {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", status, s.ByStatus[status])
	}

	if len(s.ByReason) > 0 {
		_, _ = fmt.Fprintln(w, "Field outcomes:")
		reasons := make([]string, 0, len(s.ByReason))
		for r := range s.ByReason {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", r, s.ByReason[model.FillReason(r)])
		}
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
