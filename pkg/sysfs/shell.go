package sysfs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Shell runs a command with elevated privileges and returns its stdout lines.
// A false result covers both "no elevated access" and "command failed".
type Shell interface {
	Run(command string) ([]string, bool)
}

// SuShell runs commands through "su -c".
type SuShell struct {
	// Binary defaults to "su".
	Binary string
	// Timeout bounds a single command. Zero means 5 seconds.
	Timeout time.Duration
}

var _ Shell = &SuShell{}

// NewSuShell returns a SuShell using binary.
func NewSuShell(binary string, timeout time.Duration) *SuShell {
	return &SuShell{Binary: binary, Timeout: timeout}
}

// Run implements Shell.
func (s *SuShell) Run(command string) ([]string, bool) {
	binary := s.Binary
	if binary == "" {
		binary = "su"
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-c", command)
	cmd.Stdout = &stdout

	err := cmd.Run()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"shell":   binary,
			"command": command,
		}).WithError(err).Trace("privileged command failed")
		return nil, false
	}

	out := strings.TrimRight(stdout.String(), "\n")
	if out == "" {
		return nil, true
	}

	lines := strings.Split(out, "\n")
	logrus.WithFields(logrus.Fields{
		"shell":   binary,
		"command": command,
		"lines":   len(lines),
	}).Trace("privileged command succeeded")

	return lines, true
}

// ProbeElevated reports whether shell can execute commands. It is meant to
// run once at startup.
func ProbeElevated(shell Shell) bool {
	if shell == nil {
		return false
	}
	lines, ok := shell.Run("echo ok")
	return ok && len(lines) > 0 && strings.TrimSpace(lines[0]) == "ok"
}
