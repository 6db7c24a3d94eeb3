package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "refresh",
		Short:   "Take a new reading now",
		GroupID: gBasic,
		Long: `Take a new reading now.

The daemon reads the battery immediately instead of waiting for the next poll, and restarts its poll timer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := apiClient.Refresh()
			if err != nil {
				return fmt.Errorf("failed to refresh: %w", err)
			}

			printSnapshot(cmd, snap, nil)

			return nil
		},
	}
}

func NewPollIntervalCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "poll-interval [seconds]",
		Short:   "Set how often the daemon reads the battery",
		GroupID: gAdvanced,
		Long: `Set how often the daemon reads the battery.

This is a number of seconds from 1 to 3600. The value is saved to the config file.`,
		RunE: func(_ *cobra.Command, args []string) error {
			seconds, err := parseIntArg(args, "interval")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetPollInterval(time.Duration(seconds) * time.Second)
			if err != nil {
				return fmt.Errorf("failed to set poll interval: %w", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set poll interval to %ds", seconds)

			return nil
		},
	}
}
