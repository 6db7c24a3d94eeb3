package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/daemon"
	"github.com/battdrain/battdrain/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the battdrain daemon.
	alwaysAllowNonRootAccess = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run battdrain daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run battdrain daemon in the foreground.

The daemon discovers the battery nodes, polls them every poll interval and
serves the readings on a unix socket. Send SIGHUP or edit the config file to
reload the configuration.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("battdrain daemon starting")
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}
