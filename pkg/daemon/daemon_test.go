package daemon

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// fakeProducer returns numbered snapshots. When block is set, ProduceSnapshot
// waits on it.
type fakeProducer struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (f *fakeProducer) ProduceSnapshot() powerinfo.Snapshot {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return powerinfo.Snapshot{
		CapacityPercent:        f.calls,
		CurrentMilliAmps:       500,
		CurrentSource:          powerinfo.CurrentSourceDiscovered,
		DesignCapacityMah:      4100,
		EstimatedTimeRemaining: "1h 0m",
		CapturedAt:             time.Now(),
	}
}

func (f *fakeProducer) DegradedSnapshot(reason string) powerinfo.Snapshot {
	return powerinfo.Snapshot{
		CurrentSource:          powerinfo.CurrentSourceNone,
		DesignCapacityMah:      4100,
		EstimatedTimeRemaining: powerinfo.EstimateError,
		CapturedAt:             time.Now(),
		Degraded:               true,
		Error:                  reason,
	}
}

func (f *fakeProducer) DebugInfo() powerinfo.DebugInfo {
	return powerinfo.DebugInfo{BatteryBasePath: "/sys/class/power_supply/battery", DesignCapacityMah: 4100}
}

func (f *fakeProducer) NoiseFloor() float64 { return 10 }

func (f *fakeProducer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	inserted []powerinfo.Snapshot
	pruned   []time.Time
	fail     bool
}

func (f *fakeStore) Insert(s powerinfo.Snapshot) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.inserted = append(f.inserted, s)
	return nil
}

func (f *fakeStore) Recent(limit int) ([]powerinfo.Snapshot, error) {
	if f.fail {
		return nil, errors.New("disk full")
	}
	out := make([]powerinfo.Snapshot, 0, limit)
	for i := len(f.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.inserted[i])
	}
	return out, nil
}

func (f *fakeStore) Prune(before time.Time) (int64, error) {
	f.pruned = append(f.pruned, before)
	return 0, nil
}

func newTestDaemon(t *testing.T, p Producer, st SnapshotStore) (*Daemon, *config.File) {
	t.Helper()
	conf := config.NewFileFromConfig(&config.RawFileConfig{}, filepath.Join(t.TempDir(), "battdrain.json"))
	d := New(conf, p, st)
	d.hostInfo = func() *powerinfo.HostInfo { return &powerinfo.HostInfo{Hostname: "beyond2lte", OS: "linux"} }
	return d, conf
}
