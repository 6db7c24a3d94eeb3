package powerinfo

import (
	"fmt"
	"time"
)

// Placeholders for EstimatedTimeRemaining.
const (
	EstimateNotApplicable = "N/A"
	EstimateError         = "Error"
)

// CurrentSource names the tier that produced a current reading.
type CurrentSource string

const (
	CurrentSourceDiscovered CurrentSource = "discovered"
	CurrentSourcePlatform   CurrentSource = "platform"
	CurrentSourceSweep      CurrentSource = "sweep"
	CurrentSourceNone       CurrentSource = "none"
)

// Snapshot is one complete battery reading. It is never mutated after it is
// produced.
// Units:
// - CurrentMicroAmps: µA, signed as reported by the hardware
// - CurrentMilliAmps: mA, absolute
// - VoltageMillivolts: mV
// - TemperatureDecidegrees: tenths of °C
type Snapshot struct {
	CurrentMicroAmps       int64         `json:"currentMicroAmps"`
	CurrentMilliAmps       float64       `json:"currentMilliAmps"`
	CurrentSource          CurrentSource `json:"currentSource"`
	CapacityPercent        int           `json:"capacityPercent"`
	RemainingCapacityMah   float64       `json:"remainingCapacityMah"`
	DesignCapacityMah      int           `json:"designCapacityMah"`
	IsCharging             bool          `json:"isCharging"`
	VoltageMillivolts      int           `json:"voltageMillivolts"`
	TemperatureDecidegrees int           `json:"temperatureDecidegrees"`
	EstimatedTimeRemaining string        `json:"estimatedTimeRemaining"`
	PowerDrawWatts         float64       `json:"powerDrawWatts"`
	CapturedAt             time.Time     `json:"capturedAt"`
	Degraded               bool          `json:"degraded,omitempty"`
	Error                  string        `json:"error,omitempty"`
}

// HasEstimate reports whether EstimatedTimeRemaining holds a duration.
func (s Snapshot) HasEstimate() bool {
	return !s.Degraded && s.EstimatedTimeRemaining != "" && s.EstimatedTimeRemaining != EstimateNotApplicable
}

// TemperatureCelsius converts TemperatureDecidegrees.
func (s Snapshot) TemperatureCelsius() float64 {
	return float64(s.TemperatureDecidegrees) / 10
}

// Summary is the one-line status shown to users, e.g. "2h 5m remaining (512mA)".
// Readings at or below noiseFloor mA are reported as still calculating.
func (s Snapshot) Summary(noiseFloor float64) string {
	switch {
	case s.Degraded:
		return EstimateError
	case s.IsCharging:
		return "Charging"
	case s.CurrentMilliAmps > noiseFloor && s.HasEstimate():
		return fmt.Sprintf("%s remaining (%.0fmA)", s.EstimatedTimeRemaining, s.CurrentMilliAmps)
	default:
		return "Calculating discharge time..."
	}
}

// DebugInfo describes how readings are obtained on this device.
// DesignCapacityMah is 0 until the first reading has resolved it.
type DebugInfo struct {
	ElevatedAccess            bool      `json:"elevatedAccess"`
	BatteryBasePath           string    `json:"batteryBasePath"`
	CurrentPath               string    `json:"currentPath"`
	CapacityPath              string    `json:"capacityPath"`
	DesignCapacityMah         int       `json:"designCapacityMah,omitempty"`
	FallbackDesignCapacityMah int       `json:"fallbackDesignCapacityMah"`
	NoiseFloorMilliAmps       float64   `json:"noiseFloorMilliAmps"`
	Host                      *HostInfo `json:"host,omitempty"`
}

// HostInfo holds facts about the machine the daemon runs on.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion"`
	KernelArch      string `json:"kernelArch"`
	UptimeSeconds   uint64 `json:"uptimeSeconds"`
}

// History is the recent in-memory snapshot series.
type History struct {
	Snapshots               []Snapshot `json:"snapshots"`
	AverageCurrentMilliAmps float64    `json:"averageCurrentMilliAmps"`
}
