// Package flash erases and writes firmware images through the external
// esptool binary, recording every attempt for post-mortem reporting.
package flash

import (
	"mpflash/pkg/device"
	"mpflash/pkg/firmware"
)

// Outcome classifies a single erase or write invocation.
type Outcome string

const (
	Success Outcome = "success"
	// Timeout covers connection and transfer timeouts, the failure class a
	// slower baud rate most often fixes.
	Timeout Outcome = "timeout"
	// ProtocolError covers invalid responses, checksum failures, and other
	// chip-side protocol trouble.
	ProtocolError Outcome = "protocol-error"
	// DeviceNotFound means the port disappeared or could not be opened.
	// Retrying at another baud rate cannot help.
	DeviceNotFound Outcome = "device-not-found"
	// FileNotFound means the firmware image path was rejected. Also not
	// retryable.
	FileNotFound Outcome = "file-not-found"
)

// retryable reports whether a slower baud rate is worth one attempt.
func (o Outcome) retryable() bool {
	return o == Timeout || o == ProtocolError
}

// Attempt is one write invocation, recorded in order regardless of outcome.
type Attempt struct {
	BaudRate int
	Outcome  Outcome
	// Index is 1-based attempt order within the session.
	Index int
}

// Status is the terminal state of a flash session.
type Status string

const (
	Completed Status = "completed"
	Cancelled Status = "cancelled"
	Failed    Status = "failed"
)

// Session aggregates everything one flashing run touched: the device, the
// chosen firmware, the attempt history, and the terminal status. A Session
// reaches Completed only after a successful write attempt followed by a
// post-flash probe that identified MicroPython.
type Session struct {
	Device    device.Device
	Candidate firmware.Candidate
	Attempts  []Attempt
	Status    Status
}
