package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

func NewHistoryCommand() *cobra.Command {
	var (
		last   time.Duration
		stored bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: gBasic,
		Short:   "Show recent readings",
		Long: `Show recent readings.

By default the readings the daemon keeps in memory are shown, with their
average current. With --stored, readings are loaded from the history database
instead, which must be enabled with "historyDatabase" in the config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if stored {
				snaps, err := apiClient.GetStoredHistory(limit)
				if err != nil {
					return fmt.Errorf("failed to get stored history: %w", err)
				}
				// Stored readings come newest first.
				for i := len(snaps) - 1; i >= 0; i-- {
					printHistoryLine(cmd, snaps[i])
				}
				return nil
			}

			h, err := apiClient.GetHistory(last)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			for _, s := range h.Snapshots {
				printHistoryLine(cmd, s)
			}
			cmd.Printf("%d readings, average current: %s\n", len(h.Snapshots), bold("%.0f mA", h.AverageCurrentMilliAmps))

			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&last, "last", 0, "only show readings from this long ago, e.g. 5m (default: all)")
	f.BoolVar(&stored, "stored", false, "read from the history database")
	f.IntVar(&limit, "limit", 100, "maximum number of stored readings")

	return cmd
}

func printHistoryLine(cmd *cobra.Command, s powerinfo.Snapshot) {
	if s.Degraded {
		cmd.Printf("%s  %s  %s\n", s.CapturedAt.Local().Format("2006-01-02 15:04:05"), powerinfo.EstimateError, s.Error)
		return
	}

	state := "-"
	if s.IsCharging {
		state = "+"
	}
	cmd.Printf("%s  %3d%%  %s%6.0f mA  %s\n",
		s.CapturedAt.Local().Format("2006-01-02 15:04:05"),
		s.CapacityPercent,
		state,
		s.CurrentMilliAmps,
		s.EstimatedTimeRemaining,
	)
}
