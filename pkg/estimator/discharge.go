package estimator

import (
	"fmt"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// DefaultNoiseFloorMilliAmps is the draw at or below which no estimate is
// given; near-zero readings would otherwise produce multi-day estimates.
const DefaultNoiseFloorMilliAmps = 10.0

// EstimateTimeRemaining returns the formatted time until the battery is
// empty, or (powerinfo.EstimateNotApplicable, false) while charging or when
// drawMilliAmps is not above noiseFloor.
func EstimateTimeRemaining(remainingMah, drawMilliAmps float64, charging bool, noiseFloor float64) (string, bool) {
	if charging || drawMilliAmps <= 0 || drawMilliAmps <= noiseFloor {
		return powerinfo.EstimateNotApplicable, false
	}
	return FormatHours(remainingMah / drawMilliAmps), true
}

// FormatHours formats a duration in hours as "Hh Mm", "Mm" or "< 1m".
// Both parts are truncated.
func FormatHours(hours float64) string {
	h := int(hours)
	m := int((hours - float64(h)) * 60)

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return "< 1m"
	}
}

// PowerDrawWatts converts a current in mA at voltageMillivolts to W.
func PowerDrawWatts(drawMilliAmps float64, voltageMillivolts int) float64 {
	return (drawMilliAmps * float64(voltageMillivolts) / 1000) / 1000
}
