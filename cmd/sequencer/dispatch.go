package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/pkg/logger"
)

func newDispatchCmd(configPath *string) *cobra.Command {
	var draft bool

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send or draft every email whose scheduled date has arrived",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(a *app, log logger.Logger) error {
				saveAsDraft := draft || a.cfg.SaveAsDraft
				now := time.Now()
				endOfToday := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
				n, err := a.dispatcher(saveAsDraft).DispatchDue(cmd.Context(), endOfToday)
				if err != nil {
					return err
				}
				verb := "sent"
				if saveAsDraft {
					verb = "drafted"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d emails\n", verb, n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "save outgoing messages as drafts instead of sending")
	return cmd
}
