// Package estimator turns raw battery readings into snapshots with a
// discharge time estimate.
package estimator

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/hwpath"
	"github.com/battdrain/battdrain/pkg/platform"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// DefaultDesignCapacityMah is the rated capacity of the Galaxy S10+
// (SM-G975F). It is used when the hardware does not report one.
const DefaultDesignCapacityMah = 4100

// NodeReader reads integer nodes. *sysfs.Accessor implements it.
type NodeReader interface {
	ReadInt(path string) (int64, bool)
	Elevated() bool
}

// Options are fixed for the lifetime of an Estimator.
type Options struct {
	// Candidates are swept when the discovered current node yields nothing.
	Candidates hwpath.Candidates
	// FallbackDesignCapacityMah defaults to DefaultDesignCapacityMah.
	FallbackDesignCapacityMah int
	// NoiseFloorMilliAmps defaults to DefaultNoiseFloorMilliAmps.
	NoiseFloorMilliAmps float64
}

// Estimator produces battery snapshots. Paths are resolved before
// construction and never change afterwards, so an Estimator may be shared.
type Estimator struct {
	paths      hwpath.SourcePaths
	nodes      NodeReader
	platform   platform.Provider
	candidates hwpath.Candidates

	fallbackCapacity int
	noiseFloor       float64

	capacityOnce sync.Once
	// designCapacity is 0 until resolved.
	designCapacity atomic.Int64

	now func() time.Time
}

// New returns an Estimator reading from the already discovered paths.
func New(paths hwpath.SourcePaths, nodes NodeReader, provider platform.Provider, opts Options) *Estimator {
	if opts.FallbackDesignCapacityMah <= 0 {
		opts.FallbackDesignCapacityMah = DefaultDesignCapacityMah
	}
	if opts.NoiseFloorMilliAmps <= 0 {
		opts.NoiseFloorMilliAmps = DefaultNoiseFloorMilliAmps
	}

	return &Estimator{
		paths:            paths,
		nodes:            nodes,
		platform:         provider,
		candidates:       opts.Candidates,
		fallbackCapacity: opts.FallbackDesignCapacityMah,
		noiseFloor:       opts.NoiseFloorMilliAmps,
		now:              time.Now,
	}
}

// NoiseFloor returns the draw in mA at or below which no estimate is made.
func (e *Estimator) NoiseFloor() float64 {
	return e.noiseFloor
}

// ProduceSnapshot reads the battery and returns a complete snapshot. It never
// fails: any error or panic yields a degraded snapshot instead.
func (e *Estimator) ProduceSnapshot() (snap powerinfo.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("recovered while producing snapshot")
			snap = e.DegradedSnapshot(fmt.Sprintf("panic: %v", r))
		}
	}()

	status, err := e.platform.Status()
	if err != nil {
		logrus.WithError(err).Warn("failed to read platform battery status")
		return e.DegradedSnapshot(err.Error())
	}

	percent := capacityPercent(status.Level, status.Scale)

	microAmps, source := e.resolveCurrent()
	milliAmps := math.Abs(float64(microAmps)) / 1000

	design := e.resolveDesignCapacity()
	remaining := float64(design) * float64(percent) / 100

	estimate, _ := EstimateTimeRemaining(remaining, milliAmps, status.Charging, e.noiseFloor)

	return powerinfo.Snapshot{
		CurrentMicroAmps:       microAmps,
		CurrentMilliAmps:       milliAmps,
		CurrentSource:          source,
		CapacityPercent:        percent,
		RemainingCapacityMah:   remaining,
		DesignCapacityMah:      design,
		IsCharging:             status.Charging,
		VoltageMillivolts:      status.VoltageMillivolts,
		TemperatureDecidegrees: status.TemperatureDecidegrees,
		EstimatedTimeRemaining: estimate,
		PowerDrawWatts:         PowerDrawWatts(milliAmps, status.VoltageMillivolts),
		CapturedAt:             e.now().Round(0),
	}
}

// DegradedSnapshot returns the zero-valued snapshot used when a reading fails.
func (e *Estimator) DegradedSnapshot(reason string) powerinfo.Snapshot {
	return powerinfo.Snapshot{
		CurrentSource:          powerinfo.CurrentSourceNone,
		DesignCapacityMah:      e.fallbackCapacity,
		EstimatedTimeRemaining: powerinfo.EstimateError,
		CapturedAt:             e.now().Round(0),
		Degraded:               true,
		Error:                  reason,
	}
}

// DebugInfo reports how readings are obtained. It never touches the hardware,
// so the design capacity is only reported once a snapshot has resolved it.
func (e *Estimator) DebugInfo() powerinfo.DebugInfo {
	return powerinfo.DebugInfo{
		ElevatedAccess:            e.nodes.Elevated(),
		BatteryBasePath:           e.paths.BatteryBase,
		CurrentPath:               e.paths.Current,
		CapacityPath:              e.paths.Capacity,
		DesignCapacityMah:         int(e.designCapacity.Load()),
		FallbackDesignCapacityMah: e.fallbackCapacity,
		NoiseFloorMilliAmps:       e.noiseFloor,
	}
}

func capacityPercent(level, scale int) int {
	if scale <= 0 || level < 0 {
		return 0
	}
	p := level * 100 / scale
	if p > 100 {
		return 100
	}
	return p
}
