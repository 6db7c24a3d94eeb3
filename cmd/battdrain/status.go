package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/estimator"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

var statusJSONOutput bool

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the latest battery reading from the daemon",
		Long:    `Get the latest battery reading, the discharge estimate and the daemon configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := apiClient.GetSnapshot()
			if err != nil {
				return fmt.Errorf("failed to get snapshot: %w", err)
			}

			conf, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}

			if statusJSONOutput {
				return printStatusJSON(cmd, snap, conf)
			}

			printSnapshot(cmd, snap, conf)
			cmd.Println()
			printConfig(cmd, conf)

			return nil
		},
	}

	cmd.Flags().BoolVar(&statusJSONOutput, "json", false, "Print status as JSON")

	return cmd
}

// noiseFloorOf returns the noise floor from raw, or the built-in default.
func noiseFloorOf(raw *config.RawFileConfig) float64 {
	if raw == nil {
		return estimator.DefaultNoiseFloorMilliAmps
	}
	return config.NewFileFromConfig(raw, "").NoiseFloorMilliAmps()
}

func printSnapshot(cmd *cobra.Command, snap *powerinfo.Snapshot, raw *config.RawFileConfig) {
	cmd.Println(bold("Battery status:"))

	if snap.Degraded {
		cmd.Printf("  Reading: %s\n", color.New(color.Bold, color.FgRed).Sprint("failed"))
		if snap.Error != "" {
			cmd.Printf("    %s\n", snap.Error)
		}
	}

	cmd.Printf("  Summary: %s\n", bold("%s", snap.Summary(noiseFloorOf(raw))))
	cmd.Printf("  Current charge: %s\n", bold("%d%%", snap.CapacityPercent))

	state := color.RedString("discharging")
	if snap.IsCharging {
		state = color.GreenString("charging")
	}
	cmd.Printf("  State: %s\n", bold("%s", state))

	estimate := snap.EstimatedTimeRemaining
	if snap.HasEstimate() {
		estimate = bold("%s", estimate)
	}
	cmd.Printf("  Time remaining: %s\n", estimate)
	cmd.Printf("  Current: %s (%s)\n", bold("%.0f mA", snap.CurrentMilliAmps), snap.CurrentSource)
	cmd.Printf("  Power draw: %s\n", bold("%.2f W", snap.PowerDrawWatts))
	cmd.Printf("  Remaining capacity: %s\n", bold("%.0f / %d mAh", snap.RemainingCapacityMah, snap.DesignCapacityMah))
	if snap.VoltageMillivolts > 0 {
		cmd.Printf("  Voltage: %s\n", bold("%.2f V", float64(snap.VoltageMillivolts)/1000))
	}
	if snap.TemperatureDecidegrees != 0 {
		cmd.Printf("  Temperature: %s\n", bold("%.1f °C", snap.TemperatureCelsius()))
	}
	cmd.Printf("  Captured at: %s\n", snap.CapturedAt.Local().Format("15:04:05"))
}

func printConfig(cmd *cobra.Command, raw *config.RawFileConfig) {
	conf := config.NewFileFromConfig(raw, "")

	cmd.Println(bold("Daemon configuration:"))
	cmd.Printf("  Poll interval: %s\n", bold("%s", conf.PollInterval()))
	cmd.Printf("  Read timeout: %s\n", bold("%s", conf.SnapshotTimeout()))
	cmd.Printf("  Fallback design capacity: %s\n", bold("%d mAh", conf.FallbackDesignCapacityMah()))
	cmd.Printf("  Noise floor: %s\n", bold("%.0f mA", conf.NoiseFloorMilliAmps()))
	cmd.Printf("  Elevated access allowed: %s\n", bool2Text(!conf.DisableElevatedAccess() && conf.PrivilegedShell() != ""))
	cmd.Printf("  History size: %s\n", bold("%d", conf.HistorySize()))
	if db := conf.HistoryDatabase(); db != "" {
		cmd.Printf("  History database: %s (kept for %s)\n", bold("%s", db), conf.HistoryRetention())
	} else {
		cmd.Printf("  History database: %s\n", bool2Text(false))
	}
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}
