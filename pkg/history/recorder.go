// Package history keeps the most recent battery snapshots in memory.
package history

import (
	"sync"
	"time"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// DefaultSize is the number of snapshots kept when no size is configured.
const DefaultSize = 60

// Recorder records the last N snapshots.
type Recorder struct {
	maxRecordCount int
	snapshots      []powerinfo.Snapshot
	mu             *sync.Mutex
	now            func() time.Time
}

// NewRecorder returns a Recorder keeping at most maxRecordCount snapshots.
func NewRecorder(maxRecordCount int) *Recorder {
	if maxRecordCount <= 0 {
		maxRecordCount = DefaultSize
	}
	return &Recorder{
		maxRecordCount: maxRecordCount,
		snapshots:      make([]powerinfo.Snapshot, 0, maxRecordCount),
		mu:             &sync.Mutex{},
		now:            time.Now,
	}
}

// Add appends a snapshot, dropping the oldest one when full.
func (r *Recorder) Add(s powerinfo.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	s.CapturedAt = s.CapturedAt.Round(0)

	if len(r.snapshots) >= r.maxRecordCount {
		r.snapshots = r.snapshots[1:]
	}
	r.snapshots = append(r.snapshots, s)
}

// Resize changes the capacity, keeping the newest snapshots.
func (r *Recorder) Resize(maxRecordCount int) {
	if maxRecordCount <= 0 {
		maxRecordCount = DefaultSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxRecordCount = maxRecordCount
	if over := len(r.snapshots) - maxRecordCount; over > 0 {
		r.snapshots = r.snapshots[over:]
	}
}

// Len returns the number of snapshots held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.snapshots)
}

// Snapshots returns a copy of all snapshots, oldest first.
func (r *Recorder) Snapshots() []powerinfo.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]powerinfo.Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// Last returns the newest snapshot.
func (r *Recorder) Last() (powerinfo.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.snapshots) == 0 {
		return powerinfo.Snapshot{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}

// Since returns the snapshots captured within the last duration, newest first.
func (r *Recorder) Since(last time.Duration) []powerinfo.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []powerinfo.Snapshot
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		record := r.snapshots[i]
		if r.now().Sub(record.CapturedAt) > last {
			break
		}
		records = append(records, record)
	}
	return records
}

// averageCurrent returns the mean absolute current in mA over the
// non-degraded snapshots, or 0 when there are none.
func averageCurrent(snapshots []powerinfo.Snapshot) float64 {
	var (
		sum   float64
		count int
	)
	for _, s := range snapshots {
		if s.Degraded {
			continue
		}
		sum += s.CurrentMilliAmps
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// History returns the snapshots captured within the last duration, oldest
// first, with their average current. last <= 0 means every snapshot held.
func (r *Recorder) History(last time.Duration) powerinfo.History {
	var snapshots []powerinfo.Snapshot
	if last <= 0 {
		snapshots = r.Snapshots()
	} else {
		recent := r.Since(last)
		snapshots = make([]powerinfo.Snapshot, len(recent))
		for i, s := range recent {
			snapshots[len(recent)-1-i] = s
		}
	}
	return powerinfo.History{
		Snapshots:               snapshots,
		AverageCurrentMilliAmps: averageCurrent(snapshots),
	}
}
