package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gnamed/gnamed/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the repository schema in the configured database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.ApplySchema(ctx, pool); err != nil {
			return err
		}
		slog.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
