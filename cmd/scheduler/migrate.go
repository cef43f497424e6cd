package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/room-scheduler/internal/persistence/sqlite"
)

func newMigrateCommand(state *app) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := state.logger.With("sqlite_path", state.cfg.SQLitePath)

			storage, err := sqlite.Open(ctx, state.cfg.SQLitePath, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := storage.Close(); cerr != nil {
					logger.Error("failed to close storage", "error", cerr)
				}
			}()

			if !statusOnly {
				if err := storage.Migrate(ctx); err != nil {
					return err
				}
			}

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			current := status.CurrentVersion
			if current == "" {
				current = "none"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %s (%d applied, %d pending)\n",
				current, len(status.AppliedMigrations), len(status.PendingMigrations))
			for _, pending := range status.PendingMigrations {
				fmt.Fprintf(cmd.OutOrStdout(), "pending: %s %s\n", pending.Version, pending.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report the schema version without applying migrations")
	return cmd
}
