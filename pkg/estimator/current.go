package estimator

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// resolveCurrent returns the instantaneous current in µA. Tiers are tried in
// order and the first one yielding a value wins:
//  1. the discovered current node
//  2. the platform battery API
//  3. with elevated access, every candidate base × current node, skipping zeros
func (e *Estimator) resolveCurrent() (int64, powerinfo.CurrentSource) {
	if e.paths.Current != "" {
		if v, ok := e.nodes.ReadInt(e.paths.Current); ok {
			return v, powerinfo.CurrentSourceDiscovered
		}
		logrus.WithField("path", e.paths.Current).Debug("discovered current node yielded nothing, trying platform API")
	}

	if v, ok := e.platform.CurrentNow(); ok {
		return v, powerinfo.CurrentSourcePlatform
	}

	if e.nodes.Elevated() {
		for _, base := range e.candidates.BatteryPaths {
			for _, node := range e.candidates.CurrentNodes {
				p := filepath.Join(base, node)
				if v, ok := e.nodes.ReadInt(p); ok && v != 0 {
					logrus.WithField("path", p).Debug("current found by sweeping candidates")
					return v, powerinfo.CurrentSourceSweep
				}
			}
		}
	}

	logrus.Warn("all current reading methods failed, returning 0")
	return 0, powerinfo.CurrentSourceNone
}
