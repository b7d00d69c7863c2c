package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/config"
	"github.com/mailcadence/sequencer/pkg/logger"
)

// newRootCmd builds the `sequencer` command tree (spec.md §6 CLI surface),
// grounded on notifuse's cmd/api/main.go composition-at-entry-point style.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sequencer",
		Short:         "Drive a spreadsheet-backed email follow-up sequence",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sequencer.yaml", "path to the configuration file")

	root.AddCommand(
		newInitCmd(&configPath),
		newSyncRecipientsCmd(&configPath),
		newSyncHistoryCmd(&configPath),
		newScheduleCmd(&configPath),
		newDispatchCmd(&configPath),
		newConfigureCmd(&configPath),
	)
	return root
}

// withApp loads the configuration at *configPath, builds the composition
// root, runs fn, and always closes the database connection.
func withApp(ctx context.Context, configPath *string, fn func(*app, logger.Logger) error) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPath: *configPath})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.NewLogger()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	return fn(a, log)
}
