// Package sysfs reads single-value hardware nodes, either directly or through
// a privileged shell.
package sysfs

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reader returns the trimmed first line of a node.
type Reader interface {
	ReadRaw(path string) (string, bool)
}

// DirectReader reads nodes with the permissions of the current process.
type DirectReader struct{}

var _ Reader = DirectReader{}

// ReadRaw implements Reader.
func (DirectReader) ReadRaw(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Trace("direct read failed")
		return "", false
	}
	return firstLine(string(b)), true
}

// PrivilegedReader reads nodes with "cat" through an elevated shell.
type PrivilegedReader struct {
	Shell Shell
}

var _ Reader = PrivilegedReader{}

// ReadRaw implements Reader.
func (r PrivilegedReader) ReadRaw(path string) (string, bool) {
	lines, ok := r.Shell.Run("cat " + shellQuote(path))
	if !ok || len(lines) == 0 {
		return "", false
	}
	return strings.TrimSpace(lines[0]), true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
