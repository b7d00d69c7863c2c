package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/pkg/logger"
)

func newScheduleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Schedule every remaining step for every eligible recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(a *app, log logger.Logger) error {
				n, err := a.scheduler().ScheduleAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scheduled %d recipients\n", n)
				return nil
			})
		},
	}
}
