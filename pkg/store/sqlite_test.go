package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestOpenSetsPragmas(t *testing.T) {
	db := newTestDB(t)

	var mode string
	if err := db.db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode query error: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}

	var timeout int
	if err := db.db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout query error: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d error: %v", i, err)
		}
		_ = db.Close()
	}
}

func TestInsertAndRecent(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	want := powerinfo.Snapshot{
		CurrentMicroAmps:       -512000,
		CurrentMilliAmps:       512,
		CurrentSource:          powerinfo.CurrentSourceDiscovered,
		CapacityPercent:        50,
		RemainingCapacityMah:   2050,
		DesignCapacityMah:      4100,
		VoltageMillivolts:      3900,
		TemperatureDecidegrees: 295,
		EstimatedTimeRemaining: "4h 0m",
		PowerDrawWatts:         1.9968,
		CapturedAt:             base,
	}
	if err := db.Insert(want); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	degraded := powerinfo.Snapshot{
		CurrentSource:          powerinfo.CurrentSourceNone,
		DesignCapacityMah:      4100,
		EstimatedTimeRemaining: powerinfo.EstimateError,
		CapturedAt:             base.Add(time.Minute),
		Degraded:               true,
		Error:                  "timed out",
	}
	if err := db.Insert(degraded); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d snapshots, want 2", len(got))
	}
	if got[0] != degraded {
		t.Errorf("newest = %+v, want %+v", got[0], degraded)
	}
	if got[1] != want {
		t.Errorf("oldest = %+v, want %+v", got[1], want)
	}

	got, err = db.Recent(1)
	if err != nil {
		t.Fatalf("Recent(1) error: %v", err)
	}
	if len(got) != 1 || !got[0].Degraded {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestPrune(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s := powerinfo.Snapshot{CapturedAt: base.Add(time.Duration(i) * time.Hour), CurrentSource: powerinfo.CurrentSourceNone}
		if err := db.Insert(s); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	n, err := db.Prune(base.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}
