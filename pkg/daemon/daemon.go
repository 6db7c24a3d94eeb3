package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battdrain/battdrain/pkg/config"
	"github.com/battdrain/battdrain/pkg/estimator"
	"github.com/battdrain/battdrain/pkg/events"
	"github.com/battdrain/battdrain/pkg/history"
	"github.com/battdrain/battdrain/pkg/powerinfo"
	"github.com/battdrain/battdrain/pkg/store"
)

// Producer produces battery snapshots. *estimator.Estimator implements it.
type Producer interface {
	ProduceSnapshot() powerinfo.Snapshot
	DegradedSnapshot(reason string) powerinfo.Snapshot
	DebugInfo() powerinfo.DebugInfo
	NoiseFloor() float64
}

// SnapshotStore persists snapshots. *store.DB implements it.
type SnapshotStore interface {
	Insert(powerinfo.Snapshot) error
	Recent(limit int) ([]powerinfo.Snapshot, error)
	Prune(before time.Time) (int64, error)
}

// Daemon polls the battery and serves the results over HTTP.
type Daemon struct {
	conf     config.Config
	producer Producer
	recorder *history.Recorder
	store    SnapshotStore
	hub      *events.EventHub

	// pollMu prevents parallel polls.
	pollMu sync.Mutex
	// reading is set while a ProduceSnapshot call is running, including one
	// abandoned after a timeout.
	reading atomic.Bool
	// wake restarts the poll timer after the interval changes.
	wake chan struct{}

	lastPrune time.Time
	status    statusPrinter

	hostInfo func() *powerinfo.HostInfo
	now      func() time.Time
}

// New returns a Daemon. st may be nil when persistence is disabled.
func New(conf config.Config, producer Producer, st SnapshotStore) *Daemon {
	return &Daemon{
		conf:     conf,
		producer: producer,
		recorder: history.NewRecorder(conf.HistorySize()),
		store:    st,
		hub:      events.NewEventHub(),
		wake:     make(chan struct{}, 1),
		hostInfo: hostDetails,
		now:      time.Now,
	}
}

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/snapshot", d.getSnapshot)
	router.POST("/refresh", d.refresh)
	router.GET("/history", d.getHistory)
	router.GET("/history/stored", d.getStoredHistory)
	router.GET("/debug", d.getDebugInfo)
	router.GET("/config", d.getConfig)
	router.PUT("/poll-interval", d.setPollInterval)
	router.GET("/version", getVersion)
	router.GET("/events", d.streamEvents)

	return router
}

// reloadConfig re-reads the config source and applies what can change at
// runtime: poll interval, snapshot timeout and history settings.
func (d *Daemon) reloadConfig() {
	if err := d.conf.Load(); err != nil {
		logrus.Errorf("failed to reload config: %v", err)
		return
	}
	d.recorder.Resize(d.conf.HistorySize())
	d.wakeLoop()

	logrus.WithFields(d.conf.LogrusFields()).Info("config reloaded")
	d.hub.Publish(events.ConfigReloaded, events.ConfigReloadedEvent{
		PollIntervalSeconds: int(d.conf.PollInterval() / time.Second),
		Ts:                  d.now().Unix(),
	})
}

func (d *Daemon) wakeLoop() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	if allowNonRoot {
		conf.SetAllowNonRootAccess(true)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	est := estimator.Setup(estimator.SetupOptionsFromConfig(conf))

	var st SnapshotStore
	if p := conf.HistoryDatabase(); p != "" {
		db, err := store.Open(p)
		if err != nil {
			logrus.WithError(err).WithField("path", p).Error("failed to open history database, persistence disabled")
		} else {
			fields := logrus.Fields{"path": p}
			if n, err := db.Count(); err == nil {
				fields["stored"] = n
			}
			logrus.WithFields(fields).Info("history database opened")
			st = db
			defer func() {
				if err := db.Close(); err != nil {
					logrus.Errorf("failed to close history database: %v", err)
				}
			}()
		}
	}

	d := New(conf, est, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			d.reloadConfig()
		}
	}()

	go func() {
		if err := config.Watch(ctx, configPath, d.reloadConfig); err != nil {
			logrus.WithError(err).Warn("config file watching disabled, use SIGHUP to reload")
		}
	}()

	srv := &http.Server{
		Handler:           d.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling ctx ends open event streams before Shutdown waits on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// A socket left over from an unclean exit would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if conf.AllowNonRootAccess() {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to chmod %s", unixSocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		logrus.Debugln("main loop starts")
		d.loop(ctx)
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	select {
	case <-loopDone:
	case <-time.After(5 * time.Second):
		logrus.Warn("main loop did not stop in time")
	}

	logrus.Info("exiting")
	return nil
}
