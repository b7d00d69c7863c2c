package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/pkg/logger"
)

func newSyncHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-history",
		Short: "Ingest the external-history sheet and link recorded sends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(a *app, log logger.Logger) error {
				n, err := a.ingestor.SyncHistory(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced %d history emails\n", n)
				return nil
			})
		},
	}
}
