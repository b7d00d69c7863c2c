package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailcadence/sequencer/config"
	"github.com/mailcadence/sequencer/internal/cliwizard"
)

func newConfigureCmd(configPath *string) *cobra.Command {
	configure := &cobra.Command{
		Use:   "configure",
		Short: "Change an existing configuration value",
	}

	modify := &cobra.Command{
		Use:   "modify [field] [value]",
		Short: "Interactively or explicitly modify one configuration field",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPath: *configPath})
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			var field, value string
			if len(args) > 0 {
				field = args[0]
			}
			if len(args) > 1 {
				value = args[1]
			}

			updated, err := cliwizard.RunConfigureModify(cfg, field, value)
			if err != nil {
				return err
			}
			if err := config.Save(updated, *configPath); err != nil {
				return fmt.Errorf("save configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration updated and written to %s\n", *configPath)
			return nil
		},
	}

	configure.AddCommand(modify)
	return configure
}
