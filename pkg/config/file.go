package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/hwpath"
	"github.com/battdrain/battdrain/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		PollIntervalSeconds:       ptr.To(15),
		SnapshotTimeoutSeconds:    ptr.To(10),
		FallbackDesignCapacityMah: ptr.To(4100),
		NoiseFloorMilliAmps:       ptr.To(10.0),
		PrivilegedShell:           ptr.To("su"),
		DisableElevatedAccess:     ptr.To(false),
		RelaxPermissions:          ptr.To(true),
		HistorySize:               ptr.To(60),
		HistoryDatabase:           ptr.To(""),
		HistoryRetentionHours:     ptr.To(24),
		AllowNonRootAccess:        ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

// RawFileConfig is the on-disk form. Nil fields take their defaults.
type RawFileConfig struct {
	PollIntervalSeconds       *int     `json:"pollIntervalSeconds,omitempty"`
	SnapshotTimeoutSeconds    *int     `json:"snapshotTimeoutSeconds,omitempty"`
	FallbackDesignCapacityMah *int     `json:"fallbackDesignCapacityMah,omitempty"`
	NoiseFloorMilliAmps       *float64 `json:"noiseFloorMilliAmps,omitempty"`
	PrivilegedShell           *string  `json:"privilegedShell,omitempty"`
	DisableElevatedAccess     *bool    `json:"disableElevatedAccess,omitempty"`
	RelaxPermissions          *bool    `json:"relaxPermissions,omitempty"`
	BatteryPaths              []string `json:"batteryPaths,omitempty"`
	CurrentNodes              []string `json:"currentNodes,omitempty"`
	CapacityNodes             []string `json:"capacityNodes,omitempty"`
	HistorySize               *int     `json:"historySize,omitempty"`
	HistoryDatabase           *string  `json:"historyDatabase,omitempty"`
	HistoryRetentionHours     *int     `json:"historyRetentionHours,omitempty"`
	AllowNonRootAccess        *bool    `json:"allowNonRootAccess,omitempty"`
}

// Raw returns a copy of the on-disk form with every default filled in.
func (f *File) Raw() *RawFileConfig {
	c := f.Candidates()
	return &RawFileConfig{
		PollIntervalSeconds:       ptr.To(int(f.PollInterval() / time.Second)),
		SnapshotTimeoutSeconds:    ptr.To(int(f.SnapshotTimeout() / time.Second)),
		FallbackDesignCapacityMah: ptr.To(f.FallbackDesignCapacityMah()),
		NoiseFloorMilliAmps:       ptr.To(f.NoiseFloorMilliAmps()),
		PrivilegedShell:           ptr.To(f.PrivilegedShell()),
		DisableElevatedAccess:     ptr.To(f.DisableElevatedAccess()),
		RelaxPermissions:          ptr.To(f.RelaxPermissions()),
		BatteryPaths:              c.BatteryPaths,
		CurrentNodes:              c.CurrentNodes,
		CapacityNodes:             c.CapacityNodes,
		HistorySize:               ptr.To(f.HistorySize()),
		HistoryDatabase:           ptr.To(f.HistoryDatabase()),
		HistoryRetentionHours:     ptr.To(int(f.HistoryRetention() / time.Hour)),
		AllowNonRootAccess:        ptr.To(f.AllowNonRootAccess()),
	}
}

// positive returns *v when it is set and above zero, def otherwise.
func positive[T int | float64](v *T, def *T) T {
	if v != nil && *v > 0 {
		return *v
	}
	return *def
}

func (f *File) read() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) PollInterval() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := positive(f.read().PollIntervalSeconds, defaultFileConfig.PollIntervalSeconds)
	d := time.Duration(s) * time.Second
	if d > MaxPollInterval {
		d = MaxPollInterval
	}
	return d
}

func (f *File) SnapshotTimeout() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := positive(f.read().SnapshotTimeoutSeconds, defaultFileConfig.SnapshotTimeoutSeconds)
	return time.Duration(s) * time.Second
}

func (f *File) FallbackDesignCapacityMah() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return positive(f.read().FallbackDesignCapacityMah, defaultFileConfig.FallbackDesignCapacityMah)
}

func (f *File) NoiseFloorMilliAmps() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return positive(f.read().NoiseFloorMilliAmps, defaultFileConfig.NoiseFloorMilliAmps)
}

// PrivilegedShell returns the binary used for elevated reads. An empty
// string in the file is kept, and disables elevation.
func (f *File) PrivilegedShell() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.read().PrivilegedShell, *defaultFileConfig.PrivilegedShell)
}

func (f *File) DisableElevatedAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.read().DisableElevatedAccess, *defaultFileConfig.DisableElevatedAccess)
}

func (f *File) RelaxPermissions() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.read().RelaxPermissions, *defaultFileConfig.RelaxPermissions)
}

// Candidates returns the configured search lists, each falling back to the
// built-in list when empty.
func (f *File) Candidates() hwpath.Candidates {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := f.read()
	out := hwpath.DefaultCandidates()
	if len(c.BatteryPaths) > 0 {
		out.BatteryPaths = append([]string(nil), c.BatteryPaths...)
	}
	if len(c.CurrentNodes) > 0 {
		out.CurrentNodes = append([]string(nil), c.CurrentNodes...)
	}
	if len(c.CapacityNodes) > 0 {
		out.CapacityNodes = append([]string(nil), c.CapacityNodes...)
	}
	return out
}

func (f *File) HistorySize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return positive(f.read().HistorySize, defaultFileConfig.HistorySize)
}

// HistoryDatabase returns the SQLite file path. Empty means persistence is
// disabled.
func (f *File) HistoryDatabase() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.read().HistoryDatabase, *defaultFileConfig.HistoryDatabase)
}

func (f *File) HistoryRetention() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	h := positive(f.read().HistoryRetentionHours, defaultFileConfig.HistoryRetentionHours)
	return time.Duration(h) * time.Hour
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.read().AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

// SetPollInterval rejects intervals outside 1s..3600s and sub-second
// precision.
func (f *File) SetPollInterval(d time.Duration) error {
	if d < MinPollInterval || d > MaxPollInterval {
		return pkgerrors.Errorf("poll interval %s out of range [%s, %s]", d, MinPollInterval, MaxPollInterval)
	}
	if d%time.Second != 0 {
		return pkgerrors.Errorf("poll interval %s must be a whole number of seconds", d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.read().PollIntervalSeconds = ptr.To(int(d / time.Second))
	return nil
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.read().AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

// Path returns the file backing this config.
func (f *File) Path() string {
	return f.filepath
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"pollInterval":              f.PollInterval(),
		"snapshotTimeout":           f.SnapshotTimeout(),
		"fallbackDesignCapacityMah": f.FallbackDesignCapacityMah(),
		"noiseFloorMilliAmps":       f.NoiseFloorMilliAmps(),
		"privilegedShell":           f.PrivilegedShell(),
		"disableElevatedAccess":     f.DisableElevatedAccess(),
		"relaxPermissions":          f.RelaxPermissions(),
		"historySize":               f.HistorySize(),
		"historyDatabase":           f.HistoryDatabase(),
		"historyRetention":          f.HistoryRetention(),
		"allowNonRootAccess":        f.AllowNonRootAccess(),
	}
}
