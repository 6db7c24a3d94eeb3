package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/estimator"
)

var readJSONOutput bool

func NewReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "read",
		GroupID: gBasic,
		Short:   "Read the battery once without the daemon",
		Long: `Read the battery once without the daemon.

Elevated access is probed, the battery nodes are discovered and a single
reading is taken in this process, using the same config file as the daemon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			est := estimator.Setup(estimator.SetupOptionsFromConfig(conf))

			snap := est.ProduceSnapshot()
			raw := conf.Raw()

			if readJSONOutput {
				return printStatusJSON(cmd, &snap, raw)
			}

			printSnapshot(cmd, &snap, raw)
			return nil
		},
	}

	cmd.Flags().BoolVar(&readJSONOutput, "json", false, "Print the reading as JSON")

	return cmd
}
