// Package device holds the target-device model shared by the probe, flash,
// and flow packages.
package device

import "mpflash/pkg/chip"

// Device is the microcontroller a session operates on. It is built during
// device selection and must not change after Confirm.
type Device struct {
	// Port is the serial port identifier, e.g. /dev/ttyUSB0 or COM3.
	Port string
	// Chip is the silicon variant, detected from USB IDs or stated by the
	// user for manually entered devices.
	Chip chip.Model
	// Manual marks a device whose port and chip were typed in rather than
	// enumerated. Manual devices carry lower trust: a chip model mismatch
	// against a selected firmware image is reported instead of assumed wrong.
	Manual bool

	confirmed bool
}

// Confirm marks the device as accepted by the user. Flashing refuses
// unconfirmed devices.
func (d *Device) Confirm() {
	d.confirmed = true
}

// Confirmed reports whether the user accepted this device.
func (d *Device) Confirmed() bool {
	return d.confirmed
}
