package estimator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/hwpath"
	"github.com/battdrain/battdrain/pkg/platform"
	"github.com/battdrain/battdrain/pkg/sysfs"
)

// SetupOptions configure Setup.
type SetupOptions struct {
	Options
	// PrivilegedShell is the su binary. Empty disables elevated access.
	PrivilegedShell string
	// CommandTimeout bounds each privileged command.
	CommandTimeout time.Duration
	// RelaxPermissions makes battery nodes world-readable when elevated.
	RelaxPermissions bool
	// BatteryIndex selects the battery reported by the platform API.
	BatteryIndex int
}

// SetupOptionsFromConfig maps conf to SetupOptions. Elevated access is left
// off when conf disables it.
func SetupOptionsFromConfig(conf config.Config) SetupOptions {
	shell := conf.PrivilegedShell()
	if conf.DisableElevatedAccess() {
		shell = ""
	}
	return SetupOptions{
		Options: Options{
			Candidates:                conf.Candidates(),
			FallbackDesignCapacityMah: conf.FallbackDesignCapacityMah(),
			NoiseFloorMilliAmps:       conf.NoiseFloorMilliAmps(),
		},
		PrivilegedShell:  shell,
		CommandTimeout:   conf.SnapshotTimeout(),
		RelaxPermissions: conf.RelaxPermissions(),
	}
}

// Setup probes for elevated access and discovers hardware paths, then returns
// a ready Estimator. Both steps complete before it returns, so the first
// snapshot already sees the discovered paths.
func Setup(opts SetupOptions) *Estimator {
	var shell sysfs.Shell
	elevated := false
	if opts.PrivilegedShell != "" {
		shell = sysfs.NewSuShell(opts.PrivilegedShell, opts.CommandTimeout)
		elevated = sysfs.ProbeElevated(shell)
	}
	logrus.WithField("elevated", elevated).Info("checked privileged access")

	accessor := sysfs.NewAccessor(shell, elevated)

	paths := hwpath.Discover(opts.Candidates)
	logrus.WithFields(paths.LogrusFields()).Info("hardware paths discovered")

	if opts.RelaxPermissions {
		accessor.RelaxPermissions(paths.BatteryBase)
	}

	provider := platform.NewBattery(opts.BatteryIndex, paths.BatteryBase, accessor)

	return New(paths, accessor, provider, opts.Options)
}
