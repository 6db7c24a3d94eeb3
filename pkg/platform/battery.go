// Package platform reads the operating system's own view of the battery.
package platform

import (
	"errors"
	"math"
	"path/filepath"
	"strings"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Status holds the fields the OS reports for the battery.
type Status struct {
	Level                  int
	Scale                  int
	Charging               bool
	VoltageMillivolts      int
	TemperatureDecidegrees int
}

// Provider is the platform battery status API.
type Provider interface {
	// Status returns the current battery status.
	Status() (Status, error)
	// CurrentNow returns the instantaneous current in µA, negative while
	// discharging. ok is false if the platform does not expose it.
	CurrentNow() (microAmps int64, ok bool)
}

// NodeReader reads power supply nodes. *sysfs.Accessor implements it.
type NodeReader interface {
	ReadInt(path string) (int64, bool)
	ReadString(path string) (string, bool)
}

// Injected in tests.
var batteryGet = battery.Get

// Battery is a Provider backed by github.com/distatus/battery. Fields the
// library cannot report are filled from the power supply directory.
type Battery struct {
	index int
	base  string
	nodes NodeReader
}

var _ Provider = &Battery{}

// NewBattery returns a Provider for the battery at index. base is the power
// supply directory used to complete missing fields; it may be empty.
func NewBattery(index int, base string, nodes NodeReader) *Battery {
	return &Battery{
		index: index,
		base:  base,
		nodes: nodes,
	}
}

func (b *Battery) get() (*battery.Battery, battery.ErrPartial, error) {
	bat, err := batteryGet(b.index)
	if err == nil {
		return bat, battery.ErrPartial{}, nil
	}

	var partial battery.ErrPartial
	if errors.As(err, &partial) && bat != nil {
		return bat, partial, nil
	}

	return nil, battery.ErrPartial{}, pkgerrors.Wrapf(err, "failed to get battery %d", b.index)
}

func (b *Battery) node(name string) string {
	if b.base == "" || b.nodes == nil {
		return ""
	}
	return filepath.Join(b.base, name)
}

// Status implements Provider. When the library fails outright, every field
// is read from the power supply nodes instead.
func (b *Battery) Status() (Status, error) {
	bat, partial, err := b.get()
	if err != nil {
		logrus.WithError(err).Debug("platform battery unavailable, reading power supply nodes")
		bat = &battery.Battery{}
		partial = battery.ErrPartial{State: err, Current: err, Full: err, Voltage: err}
	}

	var s Status

	if partial.Current == nil && partial.Full == nil && bat.Full > 0 {
		s.Level = int(math.Round(bat.Current))
		s.Scale = int(math.Round(bat.Full))
	} else if capacity, ok := b.readInt("capacity"); ok {
		s.Level = int(capacity)
		s.Scale = 100
	} else if err != nil {
		return Status{}, err
	} else {
		return Status{}, pkgerrors.Errorf("battery %d reports no charge level", b.index)
	}

	if partial.State == nil {
		s.Charging = bat.State == battery.Charging
	} else if status, ok := b.readString("status"); ok {
		s.Charging = strings.EqualFold(status, "Charging")
	}

	if partial.Voltage == nil && bat.Voltage > 0 {
		s.VoltageMillivolts = int(math.Round(bat.Voltage * 1000))
	} else if uv, ok := b.readInt("voltage_now"); ok {
		s.VoltageMillivolts = int(uv / 1000)
	}

	if temp, ok := b.readInt("temp"); ok {
		s.TemperatureDecidegrees = int(temp)
	}

	logrus.WithFields(logrus.Fields{
		"level":       s.Level,
		"scale":       s.Scale,
		"charging":    s.Charging,
		"voltage":     s.VoltageMillivolts,
		"temperature": s.TemperatureDecidegrees,
	}).Trace("platform battery status")

	return s, nil
}

// CurrentNow implements Provider. The library reports power in mW and voltage
// in V, so the current is derived as ChargeRate/Voltage.
func (b *Battery) CurrentNow() (int64, bool) {
	bat, partial, err := b.get()
	if err != nil {
		logrus.WithError(err).Debug("platform current reading unavailable")
		return 0, false
	}
	if partial.ChargeRate != nil || partial.Voltage != nil || bat.Voltage <= 0 {
		return 0, false
	}

	microAmps := int64(math.Round(math.Abs(bat.ChargeRate) / bat.Voltage * 1000))
	if bat.State == battery.Discharging {
		microAmps = -microAmps
	}
	return microAmps, true
}

func (b *Battery) readInt(name string) (int64, bool) {
	p := b.node(name)
	if p == "" {
		return 0, false
	}
	return b.nodes.ReadInt(p)
}

func (b *Battery) readString(name string) (string, bool) {
	p := b.node(name)
	if p == "" {
		return "", false
	}
	return b.nodes.ReadString(p)
}
