package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the run history database",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the run history schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeMigrateCmd)
	rootCmd.AddCommand(storeCmd)
}
