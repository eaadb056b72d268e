// Package probe fingerprints the firmware currently running on a device by
// talking MicroPython at it over a serial link and classifying whatever the
// device answers.
package probe

// FirmwareType is the classified firmware family.
type FirmwareType string

const (
	// MicroPython means a MicroPython REPL answered the probe.
	MicroPython FirmwareType = "micropython"
	// ESPIDF covers ESP-IDF applications and bare bootloader output.
	ESPIDF FirmwareType = "esp-idf"
	// Arduino means an Arduino sketch identified itself.
	Arduino FirmwareType = "arduino"
	// Unknown means the device produced output we could not classify.
	Unknown FirmwareType = "unknown"
	// NoResponse means nothing readable arrived within the timeout. This is
	// not an error: a blank chip answers nothing.
	NoResponse FirmwareType = "no-response"
)

func (t FirmwareType) String() string {
	switch t {
	case MicroPython:
		return "MicroPython"
	case ESPIDF:
		return "ESP-IDF"
	case Arduino:
		return "Arduino"
	case NoResponse:
		return "no response"
	default:
		return "unknown firmware"
	}
}

// Confidence states how trustworthy a classification is.
type Confidence string

const (
	// High means an explicit firmware banner matched.
	High Confidence = "high"
	// Low means the classification was inferred from partial or ambiguous
	// output, such as bootloader noise that only mentions the chip name.
	Low Confidence = "low"
)

// Result is the outcome of one fingerprinting pass.
type Result struct {
	// Raw is the full captured transcript, kept verbatim for display.
	Raw string
	// Type is the classified firmware family.
	Type FirmwareType
	// Version is the MicroPython version token when one could be parsed,
	// empty otherwise. Only set for Type == MicroPython.
	Version string
	// Confidence qualifies Type.
	Confidence Confidence
}
