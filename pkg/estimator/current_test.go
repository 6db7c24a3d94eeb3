package estimator

import (
	"testing"

	"github.com/battdrain/battdrain/pkg/hwpath"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

func TestResolveCurrentTiers(t *testing.T) {
	sweepBase := "/sys/class/power_supply/sec-fuelgauge"
	sweepCandidates := hwpath.Candidates{
		BatteryPaths: []string{base, sweepBase},
		CurrentNodes: []string{"current_now", "batt_current"},
	}

	tests := []struct {
		name         string
		paths        hwpath.SourcePaths
		elevated     bool
		values       map[string]int64
		provider     *fakeProvider
		want         int64
		wantSource   powerinfo.CurrentSource
		wantPlatform int
	}{
		{
			name:       "discovered node wins",
			paths:      testPaths,
			values:     map[string]int64{currentNode: -420000},
			provider:   &fakeProvider{current: -1, currentOK: true},
			want:       -420000,
			wantSource: powerinfo.CurrentSourceDiscovered,
		},
		{
			name:       "discovered zero is accepted",
			paths:      testPaths,
			values:     map[string]int64{currentNode: 0},
			provider:   &fakeProvider{current: -1, currentOK: true},
			want:       0,
			wantSource: powerinfo.CurrentSourceDiscovered,
		},
		{
			name:         "platform API when node fails",
			paths:        testPaths,
			provider:     &fakeProvider{current: -350000, currentOK: true},
			want:         -350000,
			wantSource:   powerinfo.CurrentSourcePlatform,
			wantPlatform: 1,
		},
		{
			name:         "platform API when nothing was discovered",
			provider:     &fakeProvider{current: 12000, currentOK: true},
			want:         12000,
			wantSource:   powerinfo.CurrentSourcePlatform,
			wantPlatform: 1,
		},
		{
			name:     "sweep skips zero values",
			elevated: true,
			values: map[string]int64{
				base + "/current_now":      0,
				base + "/batt_current":     0,
				sweepBase + "/current_now": -275000,
			},
			provider:     &fakeProvider{},
			want:         -275000,
			wantSource:   powerinfo.CurrentSourceSweep,
			wantPlatform: 1,
		},
		{
			name:         "no sweep without elevated access",
			values:       map[string]int64{sweepBase + "/current_now": -275000},
			provider:     &fakeProvider{},
			want:         0,
			wantSource:   powerinfo.CurrentSourceNone,
			wantPlatform: 1,
		},
		{
			name:         "everything fails",
			paths:        testPaths,
			elevated:     true,
			provider:     &fakeProvider{},
			want:         0,
			wantSource:   powerinfo.CurrentSourceNone,
			wantPlatform: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := newFakeNodes(tt.elevated, tt.values)
			e := New(tt.paths, nodes, tt.provider, Options{Candidates: sweepCandidates})

			got, source := e.resolveCurrent()
			if got != tt.want || source != tt.wantSource {
				t.Errorf("resolveCurrent() = (%d, %s), want (%d, %s)", got, source, tt.want, tt.wantSource)
			}
			if tt.provider.currentCalls != tt.wantPlatform {
				t.Errorf("platform CurrentNow called %d times, want %d", tt.provider.currentCalls, tt.wantPlatform)
			}
		})
	}
}

func TestResolveCurrentStopsAtFirstTier(t *testing.T) {
	nodes := newFakeNodes(true, map[string]int64{currentNode: -100000})
	p := &fakeProvider{current: -1, currentOK: true}
	e := New(testPaths, nodes, p, Options{Candidates: hwpath.DefaultCandidates()})

	if _, source := e.resolveCurrent(); source != powerinfo.CurrentSourceDiscovered {
		t.Fatalf("source = %s, want %s", source, powerinfo.CurrentSourceDiscovered)
	}
	if p.currentCalls != 0 {
		t.Errorf("platform API called %d times after a discovered reading", p.currentCalls)
	}
	if n := nodes.totalReads(); n != 1 {
		t.Errorf("%d node reads, want exactly 1", n)
	}
}
