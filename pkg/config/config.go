package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/hwpath"
)

type Config interface {
	PollInterval() time.Duration
	SnapshotTimeout() time.Duration
	FallbackDesignCapacityMah() int
	NoiseFloorMilliAmps() float64
	PrivilegedShell() string
	DisableElevatedAccess() bool
	RelaxPermissions() bool
	Candidates() hwpath.Candidates
	HistorySize() int
	HistoryDatabase() string
	HistoryRetention() time.Duration
	AllowNonRootAccess() bool

	SetPollInterval(time.Duration) error
	SetAllowNonRootAccess(bool)

	// Raw returns the effective configuration in its on-disk form.
	Raw() *RawFileConfig
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

const (
	MinPollInterval = 1 * time.Second
	MaxPollInterval = 3600 * time.Second
)
