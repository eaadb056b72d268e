// Package serialport enumerates serial ports that could carry an ESP32.
package serialport

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial/enumerator"

	"mpflash/pkg/chip"
)

// Port is one enumerated serial port together with what the USB descriptors
// tell us about it.
type Port struct {
	Name string
	// VID and PID are empty for non-USB ports.
	VID string
	PID string
	// Guess is the chip model inferred from VID/PID, Unknown for the common
	// serial bridges that hide the silicon behind them.
	Guess chip.Model
	// LikelyESP32 reports whether the USB IDs belong to hardware commonly
	// found on ESP32 dev boards.
	LikelyESP32 bool
}

// Label renders a port for menu display, e.g. "/dev/ttyUSB0 (ESP32-C3)".
func (p Port) Label() string {
	switch {
	case p.Guess != chip.Unknown:
		return p.Name + " (" + p.Guess.String() + ")"
	case p.LikelyESP32:
		return p.Name + " (ESP32 - unknown variant)"
	default:
		return p.Name
	}
}

// Lister enumerates candidate ports.
type Lister interface {
	List() ([]Port, error)
}

// USBLister lists ports via the OS serial enumerator.
type USBLister struct{}

var _ Lister = USBLister{}

// List returns candidate ports in enumeration order, noise filtered out.
func (USBLister) List() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate serial ports")
	}

	var ports []Port
	for _, d := range details {
		if skipPort(d.Name) {
			continue
		}
		p := Port{Name: d.Name}
		if d.IsUSB {
			p.VID = d.VID
			p.PID = d.PID
			p.Guess, p.LikelyESP32 = chip.FromUSB(d.VID, d.PID)
		}
		logrus.WithFields(logrus.Fields{
			"port":   p.Name,
			"vid":    p.VID,
			"pid":    p.PID,
			"guess":  p.Guess.String(),
			"likely": p.LikelyESP32,
		}).Debug("enumerated serial port")
		ports = append(ports, p)
	}

	return ports, nil
}

// skipPort filters ports that are never a microcontroller: macOS exposes
// bluetooth and debug ttys that would only confuse the selection menu.
// usbmodem ports are always kept since ESP32 native USB shows up as one.
func skipPort(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "usbmodem") {
		return false
	}
	return strings.Contains(n, "bluetooth") || strings.Contains(n, "debug")
}
