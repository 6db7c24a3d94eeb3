package sysfs

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Accessor reads small integers from hardware nodes. The access mode is fixed
// at construction.
type Accessor struct {
	reader   Reader
	shell    Shell
	elevated bool
}

// NewAccessor returns an Accessor that reads through shell when elevated is
// true and directly otherwise.
func NewAccessor(shell Shell, elevated bool) *Accessor {
	a := &Accessor{
		shell:    shell,
		elevated: elevated && shell != nil,
	}
	if a.elevated {
		a.reader = PrivilegedReader{Shell: shell}
	} else {
		a.reader = DirectReader{}
	}
	return a
}

// Elevated reports whether reads go through the privileged shell.
func (a *Accessor) Elevated() bool {
	return a.elevated
}

// ReadString returns the trimmed first line of path.
func (a *Accessor) ReadString(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	return a.reader.ReadRaw(path)
}

// ReadInt returns the integer stored in path. I/O and parse failures both
// yield (0, false).
func (a *Accessor) ReadInt(path string) (int64, bool) {
	s, ok := a.ReadString(path)
	if !ok {
		return 0, false
	}

	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"path": path,
			"raw":  s,
		}).Debug("node is not an integer")
		return 0, false
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"val":      v,
		"elevated": a.elevated,
	}).Trace("read node")

	return v, true
}

// RelaxPermissions tries to make the nodes under base world-readable so later
// direct reads succeed. Failures are ignored.
func (a *Accessor) RelaxPermissions(base string) {
	if !a.elevated || base == "" {
		return
	}

	glob := shellQuote(base) + "/*"
	for _, cmd := range []string{
		"chmod 644 " + glob,
		"chown system:system " + glob,
	} {
		if _, ok := a.shell.Run(cmd); !ok {
			logrus.WithField("command", cmd).Debug("failed to relax battery node permissions")
		}
	}
}
