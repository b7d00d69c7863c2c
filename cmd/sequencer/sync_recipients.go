package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/pkg/logger"
)

func newSyncRecipientsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-recipients",
		Short: "Ingest new recipient rows from the recipient sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(a *app, log logger.Logger) error {
				n, err := a.ingestor.SyncRecipients(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced %d recipient rows\n", n)
				return nil
			})
		},
	}
}
