package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/example/room-scheduler/internal/config"
	"github.com/example/room-scheduler/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	state := &app{stdout: stdout}
	var envFiles []string

	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Recurring room reservation scheduler",
		Long: `scheduler expands recurring reservation requests, detects conflicts
against confirmed bookings and runs the review workflow over HTTP.

Configuration is read from SCHEDULER_* environment variables, optionally
loaded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = logging.New(stderr, cfg.LogLevel)
			state.logger.Debug("configuration loaded",
				"command", cmd.CommandPath(),
				"timezone", cfg.Timezone,
				"sqlite_path", cfg.SQLitePath,
			)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCommand(state),
		newMigrateCommand(state),
		newExpandCommand(state),
	)
	return root
}
