package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/config"
	"github.com/mailcadence/sequencer/internal/cliwizard"
)

func newInitCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively create a new configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliwizard.RunInit()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, *configPath); err != nil {
				return fmt.Errorf("save configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", *configPath)
			return nil
		},
	}
}
