package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/events"
	"github.com/battdrain/battdrain/pkg/powerinfo"
	"github.com/battdrain/battdrain/pkg/version"
)

func do(t *testing.T, d *Daemon, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	d.setupRoutes().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestGetSnapshotPollsOnce(t *testing.T) {
	p := &fakeProducer{}
	d, _ := newTestDaemon(t, p, nil)

	for i := 0; i < 3; i++ {
		w := do(t, d, "GET", "/snapshot", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if snap := decodeBody[powerinfo.Snapshot](t, w); snap.CapacityPercent != 1 {
			t.Errorf("CapacityPercent = %d, want 1", snap.CapacityPercent)
		}
	}
	if p.callCount() != 1 {
		t.Errorf("producer called %d times, want 1", p.callCount())
	}
}

func TestRefresh(t *testing.T) {
	p := &fakeProducer{}
	d, _ := newTestDaemon(t, p, nil)

	do(t, d, "POST", "/refresh", "")
	w := do(t, d, "POST", "/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if snap := decodeBody[powerinfo.Snapshot](t, w); snap.CapacityPercent != 2 {
		t.Errorf("CapacityPercent = %d, want 2", snap.CapacityPercent)
	}
	if d.recorder.Len() != 2 {
		t.Errorf("recorded %d snapshots, want 2", d.recorder.Len())
	}
}

func TestGetHistory(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeProducer{}, nil)
	for i := 0; i < 3; i++ {
		d.poll()
	}

	tests := []struct {
		query    string
		wantCode int
		wantLen  int
	}{
		{query: "", wantCode: http.StatusOK, wantLen: 3},
		{query: "?last=1h", wantCode: http.StatusOK, wantLen: 3},
		{query: "?last=abc", wantCode: http.StatusBadRequest},
		{query: "?last=-5m", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := do(t, d, "GET", "/history"+tt.query, "")
		if w.Code != tt.wantCode {
			t.Errorf("GET /history%s status = %d, want %d", tt.query, w.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		h := decodeBody[powerinfo.History](t, w)
		if len(h.Snapshots) != tt.wantLen {
			t.Errorf("GET /history%s returned %d snapshots, want %d", tt.query, len(h.Snapshots), tt.wantLen)
		}
		if h.AverageCurrentMilliAmps != 500 {
			t.Errorf("GET /history%s average = %v, want 500", tt.query, h.AverageCurrentMilliAmps)
		}
	}
}

func TestGetStoredHistory(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeProducer{}, nil)
	if w := do(t, d, "GET", "/history/stored", ""); w.Code != http.StatusNotFound {
		t.Errorf("without a store status = %d, want 404", w.Code)
	}

	st := &fakeStore{}
	d, _ = newTestDaemon(t, &fakeProducer{}, st)
	if w := do(t, d, "GET", "/history/stored", ""); w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty store = %d %q", w.Code, w.Body.String())
	}

	for i := 0; i < 4; i++ {
		d.poll()
	}

	w := do(t, d, "GET", "/history/stored?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	snaps := decodeBody[[]powerinfo.Snapshot](t, w)
	if len(snaps) != 2 || snaps[0].CapacityPercent != 4 {
		t.Errorf("stored history = %+v", snaps)
	}

	for _, q := range []string{"0", "x", "10001"} {
		if w := do(t, d, "GET", "/history/stored?limit="+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, w.Code)
		}
	}

	st.fail = true
	if w := do(t, d, "GET", "/history/stored", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("failing store status = %d, want 500", w.Code)
	}
}

func TestGetDebugInfo(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeProducer{}, nil)

	w := do(t, d, "GET", "/debug", "")
	info := decodeBody[powerinfo.DebugInfo](t, w)
	if info.BatteryBasePath != "/sys/class/power_supply/battery" {
		t.Errorf("BatteryBasePath = %q", info.BatteryBasePath)
	}
	if info.Host == nil || info.Host.Hostname != "beyond2lte" {
		t.Errorf("Host = %+v", info.Host)
	}
}

func TestSetPollInterval(t *testing.T) {
	tests := []struct {
		body     string
		wantCode int
		want     time.Duration
	}{
		{body: "30", wantCode: http.StatusCreated, want: 30 * time.Second},
		{body: "3600", wantCode: http.StatusCreated, want: time.Hour},
		{body: "0", wantCode: http.StatusBadRequest, want: 15 * time.Second},
		{body: "3601", wantCode: http.StatusBadRequest, want: 15 * time.Second},
		{body: "fast", wantCode: http.StatusBadRequest, want: 15 * time.Second},
	}

	for _, tt := range tests {
		d, conf := newTestDaemon(t, &fakeProducer{}, nil)
		w := do(t, d, "PUT", "/poll-interval", tt.body)
		if w.Code != tt.wantCode {
			t.Errorf("PUT %s status = %d, want %d", tt.body, w.Code, tt.wantCode)
		}
		if conf.PollInterval() != tt.want {
			t.Errorf("PUT %s interval = %v, want %v", tt.body, conf.PollInterval(), tt.want)
		}
		if tt.wantCode != http.StatusCreated {
			continue
		}

		saved, err := config.NewFile(conf.Path())
		if err != nil {
			t.Fatal(err)
		}
		if saved.PollInterval() != tt.want {
			t.Errorf("saved interval = %v, want %v", saved.PollInterval(), tt.want)
		}
		select {
		case <-d.wake:
		default:
			t.Error("poll loop was not woken")
		}
	}
}

func TestGetConfigAndVersion(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeProducer{}, nil)

	raw := decodeBody[config.RawFileConfig](t, do(t, d, "GET", "/config", ""))
	if raw.PollIntervalSeconds == nil || *raw.PollIntervalSeconds != 15 {
		t.Errorf("pollIntervalSeconds = %v", raw.PollIntervalSeconds)
	}

	if v := decodeBody[string](t, do(t, d, "GET", "/version", "")); v != version.Version {
		t.Errorf("version = %q, want %q", v, version.Version)
	}
}

func TestStreamEvents(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeProducer{}, nil)
	srv := httptest.NewServer(d.setupRoutes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	for d.hub.Subscribers() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	d.poll()

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) < 2 || lines[0] != "event:"+events.SnapshotUpdated || !strings.HasPrefix(lines[1], "data:") {
		t.Fatalf("unexpected event lines %q", lines)
	}
	var snap powerinfo.Snapshot
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data:")), &snap); err != nil {
		t.Fatalf("failed to decode event data: %v", err)
	}
	if snap.CapacityPercent != 1 {
		t.Errorf("CapacityPercent = %d, want 1", snap.CapacityPercent)
	}
}
