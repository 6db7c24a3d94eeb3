package daemon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/events"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// pruneInterval is how often stored snapshots past retention are deleted.
var pruneInterval = time.Hour

// loop polls once immediately and then every poll interval until ctx is done.
func (d *Daemon) loop(ctx context.Context) {
	for {
		d.poll()

		timer := time.NewTimer(d.conf.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-d.wake:
			timer.Stop()
			logrus.WithField("interval", d.conf.PollInterval()).Debug("poll timer restarted")
		case <-timer.C:
		}
	}
}

// poll produces one snapshot, records it, persists it and publishes it. It
// has the logic to prevent parallel runs, so a forced poll from the HTTP API
// waits for a running one to finish.
func (d *Daemon) poll() powerinfo.Snapshot {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()

	snap := d.produceWithTimeout(d.conf.SnapshotTimeout())

	d.recorder.Add(snap)
	d.persist(snap)
	d.hub.Publish(events.SnapshotUpdated, snap)
	d.status.print(snap, d.producer.NoiseFloor(), d.conf.PollInterval())

	return snap
}

// produceWithTimeout bounds a ProduceSnapshot call. When the call does not
// return in time, or an earlier call is still stuck, a degraded snapshot is
// returned instead.
func (d *Daemon) produceWithTimeout(timeout time.Duration) powerinfo.Snapshot {
	if !d.reading.CompareAndSwap(false, true) {
		logrus.Warn("previous battery read still in progress, skipping this one")
		return d.producer.DegradedSnapshot("previous read still in progress")
	}

	result := make(chan powerinfo.Snapshot, 1)
	go func() {
		defer d.reading.Store(false)
		result <- d.producer.ProduceSnapshot()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case snap := <-result:
		return snap
	case <-timer.C:
		logrus.WithField("timeout", timeout).Warn("battery read timed out")
		return d.producer.DegradedSnapshot("timed out after " + timeout.String())
	}
}

func (d *Daemon) persist(snap powerinfo.Snapshot) {
	if d.store == nil {
		return
	}

	if err := d.store.Insert(snap); err != nil {
		logrus.WithError(err).Error("failed to store snapshot")
	}

	now := d.now()
	if now.Sub(d.lastPrune) < pruneInterval {
		return
	}
	d.lastPrune = now

	n, err := d.store.Prune(now.Add(-d.conf.HistoryRetention()))
	if err != nil {
		logrus.WithError(err).Error("failed to prune stored snapshots")
		return
	}
	if n > 0 {
		logrus.WithField("count", n).Debug("pruned stored snapshots")
	}
}

type loopStatus struct {
	summary  string
	percent  int
	charging bool
	source   powerinfo.CurrentSource
	degraded bool
}

// statusPrinter logs poll results, skipping repeats.
type statusPrinter struct {
	last          loopStatus
	lastPrintTime time.Time
}

func (p *statusPrinter) print(snap powerinfo.Snapshot, noiseFloor float64, interval time.Duration) {
	currentStatus := loopStatus{
		summary:  snap.Summary(noiseFloor),
		percent:  snap.CapacityPercent,
		charging: snap.IsCharging,
		source:   snap.CurrentSource,
		degraded: snap.Degraded,
	}

	fields := logrus.Fields{
		"summary":         currentStatus.summary,
		"capacityPercent": snap.CapacityPercent,
		"currentMa":       snap.CurrentMilliAmps,
		"currentSource":   snap.CurrentSource,
		"charging":        snap.IsCharging,
		"powerDrawW":      snap.PowerDrawWatts,
	}
	if snap.Degraded {
		fields["error"] = snap.Error
	}

	defer func() { p.lastPrintTime = time.Now() }()

	// Skip printing if the last print was less than interval+1 seconds ago and everything is the same.
	if time.Since(p.lastPrintTime) < interval+time.Second && p.last == currentStatus {
		logrus.WithFields(fields).Trace("poll status")
		return
	}

	logrus.WithFields(fields).Debug("poll status")

	p.last = currentStatus
}
