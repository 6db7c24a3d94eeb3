package estimator

import (
	"github.com/sirupsen/logrus"
)

const (
	// Values at or below this are not a plausible mAh design capacity.
	minPlausibleCapacity = 1000
	// Values above this are in µAh.
	microAmpHourThreshold = 100000
)

// resolveDesignCapacity returns the rated capacity in mAh. It is resolved on
// the first call and cached.
func (e *Estimator) resolveDesignCapacity() int {
	e.capacityOnce.Do(func() {
		e.designCapacity.Store(int64(e.readDesignCapacity()))
	})
	if v := e.designCapacity.Load(); v > 0 {
		return int(v)
	}
	return e.fallbackCapacity
}

func (e *Estimator) readDesignCapacity() int {
	if e.paths.Capacity != "" {
		if v, ok := e.nodes.ReadInt(e.paths.Capacity); ok {
			if mah, ok := NormalizeDesignCapacity(v); ok {
				logrus.WithFields(logrus.Fields{
					"path": e.paths.Capacity,
					"raw":  v,
					"mAh":  mah,
				}).Info("using hardware design capacity")
				return mah
			}
			logrus.WithFields(logrus.Fields{
				"path": e.paths.Capacity,
				"raw":  v,
			}).Warn("ignoring implausible design capacity")
		}
	}

	logrus.WithField("mAh", e.fallbackCapacity).Info("using fallback design capacity")
	return e.fallbackCapacity
}

// NormalizeDesignCapacity converts a raw capacity node value to mAh. Values
// not above 1000 are rejected; values above 100000 are taken as µAh.
func NormalizeDesignCapacity(raw int64) (int, bool) {
	if raw <= minPlausibleCapacity {
		return 0, false
	}
	if raw > microAmpHourThreshold {
		return int(raw / 1000), true
	}
	return int(raw), true
}
