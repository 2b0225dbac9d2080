package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/jobs"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import jobs from a JSON, XLSX or CSV file into the Notion job queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" {
			return eris.New("notion token is required (AUTOAPPLY_NOTION_TOKEN)")
		}
		if cfg.Notion.JobDB == "" {
			return eris.New("notion job DB ID is required (AUTOAPPLY_NOTION_JOB_DB)")
		}

		list, err := jobs.File{Path: importPath}.Jobs(ctx)
		if err != nil {
			return eris.Wrap(err, "import jobs")
		}

		created, err := initNotion().Import(ctx, list)
		if err != nil {
			return eris.Wrap(err, "import jobs")
		}

		zap.L().Info("import complete",
			zap.Int("created", created),
			zap.Int("read", len(list)),
			zap.String("file", importPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to the job list (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
