package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// watchDebounce coalesces the bursts of events editors emit on save.
var watchDebounce = 100 * time.Millisecond

// Watch calls onChange after the file at path is written or replaced. The
// parent directory is watched so that atomic renames are seen as well. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return pkgerrors.Wrapf(err, "failed to watch %s", dir)
	}

	logrus.WithField("path", path).Debug("watching config file")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logrus.WithFields(logrus.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			}).Trace("config file event")
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("config watcher error")
		}
	}
}
