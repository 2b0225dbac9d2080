package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/autoapply/internal/model"
)

var (
	applyTitle   string
	applyCompany string
)

var applyCmd = &cobra.Command{
	Use:   "apply <url>",
	Short: "Fill a single job application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("apply"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		job := model.Job{URL: args[0], Title: applyTitle, Company: applyCompany}
		result, err := env.Session.Run(ctx, job)
		if err != nil {
			return eris.Wrapf(err, "apply %s", job.URL)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyTitle, "title", "", "job title recorded with the run")
	applyCmd.Flags().StringVar(&applyCompany, "company", "", "company recorded with the run")
	rootCmd.AddCommand(applyCmd)
}
