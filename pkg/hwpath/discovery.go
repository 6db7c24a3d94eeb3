// Package hwpath locates the sysfs nodes that expose battery current and
// design capacity on the running device.
package hwpath

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Power supply nodes of the Galaxy S10+ (Exynos, beyond2lte), in probe order.
var (
	DefaultBatteryPaths = []string{
		"/sys/class/power_supply/battery",
		"/sys/class/power_supply/sec-fuelgauge",
		"/sys/class/power_supply/max77705-fuelgauge",
		"/sys/class/power_supply/s2mu004-fuelgauge",
	}

	DefaultCurrentNodes = []string{
		"current_now",
		"current_avg",
		"present_current",
		"batt_current",
	}

	DefaultCapacityNodes = []string{
		"charge_full_design",
		"charge_full",
		"energy_full_design",
		"batt_capacity",
	}
)

// Candidates are the ordered lists probed by Discover.
type Candidates struct {
	BatteryPaths  []string
	CurrentNodes  []string
	CapacityNodes []string
}

// DefaultCandidates returns copies of the built-in candidate lists.
func DefaultCandidates() Candidates {
	return Candidates{
		BatteryPaths:  append([]string(nil), DefaultBatteryPaths...),
		CurrentNodes:  append([]string(nil), DefaultCurrentNodes...),
		CapacityNodes: append([]string(nil), DefaultCapacityNodes...),
	}
}

// SourcePaths holds the resolved nodes. An empty string means unresolved.
type SourcePaths struct {
	BatteryBase string `json:"batteryBase"`
	Current     string `json:"current"`
	Capacity    string `json:"capacity"`
}

// LogrusFields returns the paths as log fields.
func (p SourcePaths) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"batteryBase": p.BatteryBase,
		"current":     p.Current,
		"capacity":    p.Capacity,
	}
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Discover picks the first existing battery path, then the first existing
// current and capacity node under it. Nothing resolving is not an error;
// callers fall back to the platform API or constants.
func Discover(c Candidates) SourcePaths {
	var p SourcePaths

	for _, base := range c.BatteryPaths {
		if Exists(base) {
			p.BatteryBase = base
			logrus.WithField("path", base).Info("found battery path")
			break
		}
	}

	if p.BatteryBase == "" {
		logrus.WithField("candidates", c.BatteryPaths).Warn("no battery path found")
		return p
	}

	p.Current = firstExisting(p.BatteryBase, c.CurrentNodes)
	if p.Current != "" {
		logrus.WithField("path", p.Current).Info("found current path")
	}

	p.Capacity = firstExisting(p.BatteryBase, c.CapacityNodes)
	if p.Capacity != "" {
		logrus.WithField("path", p.Capacity).Info("found capacity path")
	}

	return p
}

func firstExisting(base string, nodes []string) string {
	for _, node := range nodes {
		full := filepath.Join(base, node)
		if Exists(full) {
			return full
		}
	}
	return ""
}
