package hwpath

import (
	"os"
	"path/filepath"
	"testing"
)

func mkNodes(t *testing.T, dir string, nodes ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range nodes {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
		want  func(dir string) SourcePaths
	}{
		{
			name:  "nothing exists",
			setup: func(*testing.T, string) {},
			want:  func(string) SourcePaths { return SourcePaths{} },
		},
		{
			name: "base exists without nodes",
			setup: func(t *testing.T, dir string) {
				mkNodes(t, filepath.Join(dir, "sec-fuelgauge"))
			},
			want: func(dir string) SourcePaths {
				return SourcePaths{BatteryBase: filepath.Join(dir, "sec-fuelgauge")}
			},
		},
		{
			name: "first existing base wins",
			setup: func(t *testing.T, dir string) {
				mkNodes(t, filepath.Join(dir, "sec-fuelgauge"), "current_avg")
				mkNodes(t, filepath.Join(dir, "max77705-fuelgauge"), "current_now", "charge_full")
			},
			want: func(dir string) SourcePaths {
				base := filepath.Join(dir, "sec-fuelgauge")
				return SourcePaths{BatteryBase: base, Current: filepath.Join(base, "current_avg")}
			},
		},
		{
			name: "leaf order is respected independently",
			setup: func(t *testing.T, dir string) {
				mkNodes(t, filepath.Join(dir, "battery"), "batt_current", "present_current", "batt_capacity", "charge_full")
			},
			want: func(dir string) SourcePaths {
				base := filepath.Join(dir, "battery")
				return SourcePaths{
					BatteryBase: base,
					Current:     filepath.Join(base, "present_current"),
					Capacity:    filepath.Join(base, "charge_full"),
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(root, tt.name)
			tt.setup(t, dir)
			c := Candidates{
				BatteryPaths: []string{
					filepath.Join(dir, "battery"),
					filepath.Join(dir, "sec-fuelgauge"),
					filepath.Join(dir, "max77705-fuelgauge"),
				},
				CurrentNodes:  DefaultCurrentNodes,
				CapacityNodes: DefaultCapacityNodes,
			}
			if got, want := Discover(c), tt.want(dir); got != want {
				t.Errorf("Discover() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDiscoverIdempotent(t *testing.T) {
	dir := t.TempDir()
	mkNodes(t, filepath.Join(dir, "battery"), "current_now", "charge_full_design")

	c := Candidates{
		BatteryPaths:  []string{filepath.Join(dir, "missing"), filepath.Join(dir, "battery")},
		CurrentNodes:  DefaultCurrentNodes,
		CapacityNodes: DefaultCapacityNodes,
	}

	first := Discover(c)
	second := Discover(c)
	if first != second {
		t.Fatalf("discovery is not idempotent: %+v != %+v", first, second)
	}
	if first.Current == "" || first.Capacity == "" {
		t.Fatalf("expected both nodes resolved, got %+v", first)
	}
}

func TestDefaultCandidatesAreCopies(t *testing.T) {
	c := DefaultCandidates()
	c.BatteryPaths[0] = "/tmp/changed"
	if DefaultBatteryPaths[0] == "/tmp/changed" {
		t.Fatal("DefaultCandidates must not alias the package defaults")
	}
}
