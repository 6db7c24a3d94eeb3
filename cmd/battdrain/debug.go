package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewDebugCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "debug",
		GroupID: gAdvanced,
		Short:   "Show how the daemon reads the battery",
		Long: `Show how the daemon reads the battery.

This includes whether elevated access is available, the discovered sysfs
paths and the design capacity in use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := apiClient.GetDebugInfo()
			if err != nil {
				return fmt.Errorf("failed to get debug info: %w", err)
			}

			orNone := func(s string) string {
				if s == "" {
					return "(not found)"
				}
				return s
			}

			cmd.Println(bold("Battery access:"))
			cmd.Printf("  Elevated access: %s\n", bool2Text(info.ElevatedAccess))
			cmd.Printf("  Battery path: %s\n", orNone(info.BatteryBasePath))
			cmd.Printf("  Current node: %s\n", orNone(info.CurrentPath))
			cmd.Printf("  Capacity node: %s\n", orNone(info.CapacityPath))
			design := "(not read yet)"
			if info.DesignCapacityMah > 0 {
				design = bold("%d mAh", info.DesignCapacityMah)
			}
			cmd.Printf("  Design capacity: %s (fallback %d mAh)\n", design, info.FallbackDesignCapacityMah)
			cmd.Printf("  Noise floor: %s\n", bold("%.0f mA", info.NoiseFloorMilliAmps))

			if h := info.Host; h != nil {
				cmd.Println()
				cmd.Println(bold("Host:"))
				cmd.Printf("  Hostname: %s\n", h.Hostname)
				cmd.Printf("  Platform: %s %s (%s)\n", h.Platform, h.PlatformVersion, h.OS)
				cmd.Printf("  Kernel: %s %s\n", h.KernelVersion, h.KernelArch)
				cmd.Printf("  Uptime: %s\n", time.Duration(h.UptimeSeconds)*time.Second)
			}

			return nil
		},
	}
}
