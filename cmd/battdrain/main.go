package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/battdrain/battdrain/pkg/client"
	"github.com/battdrain/battdrain/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/battdrain.sock"
	configPath     = "/etc/battdrain.json"

	apiClient *client.Client
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: battdrain daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'battdrain daemon', or use 'battdrain read' for a one-off reading without the daemon.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again as root")
		fmt.Fprintln(os.Stderr, "  - Or start the daemon with '--always-allow-non-root-access' to grant permissions to your user")
	}
}

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func main() {
	// battdrain does not need to use much.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battdrain",
		Short: "battdrain estimates how long your battery will last",
		Long: `battdrain estimates how long your battery will last.

It reads the instantaneous battery current and rated capacity from sysfs,
falling back to privileged reads through su when the nodes are protected, and
estimates the remaining discharge time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// The daemon and the local reader do not talk to a running daemon.
			if cmd.Name() == "daemon" || cmd.Name() == "read" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Restart the daemon after upgrading so both are the same version.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("battdrain daemon is too old to report its version. Restart the daemon after upgrading so both are the same version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "battdrain daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewReadCommand(),
		NewRefreshCommand(),
		NewHistoryCommand(),
		NewWatchCommand(),
		NewPollIntervalCommand(),
		NewDebugCommand(),
	)

	return cmd
}
