// Package chip models the ESP32 silicon variants this tool can flash and
// the USB identifiers they (or their serial bridges) show up with.
package chip

import (
	"strings"

	"github.com/pkg/errors"
)

// Model is an ESP32 silicon variant. The zero value is Unknown.
type Model string

const (
	Unknown Model = ""
	ESP32   Model = "esp32"
	ESP32C3 Model = "esp32c3"
	ESP32S3 Model = "esp32s3"
	ESP32C6 Model = "esp32c6"
)

// Supported lists the variants this tool can flash, in menu order.
func Supported() []Model {
	return []Model{ESP32, ESP32C3, ESP32S3, ESP32C6}
}

func (m Model) String() string {
	switch m {
	case ESP32:
		return "ESP32"
	case ESP32C3:
		return "ESP32-C3"
	case ESP32S3:
		return "ESP32-S3"
	case ESP32C6:
		return "ESP32-C6"
	default:
		return "Unknown"
	}
}

// ID returns the identifier esptool expects for --chip.
func (m Model) ID() string {
	return string(m)
}

// ImagePrefix returns the MicroPython firmware image name prefix for this
// variant, e.g. ESP32_GENERIC_C3 for the C3.
func (m Model) ImagePrefix() string {
	switch m {
	case ESP32C3:
		return "ESP32_GENERIC_C3"
	case ESP32S3:
		return "ESP32_GENERIC_S3"
	case ESP32C6:
		return "ESP32_GENERIC_C6"
	default:
		return "ESP32_GENERIC"
	}
}

// Parse normalizes user- or index-supplied chip names. It accepts the esptool
// form (esp32c3), the marketing form (ESP32-C3), and underscores.
func Parse(s string) (Model, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer("-", "", "_", "", " ", "").Replace(n)
	switch n {
	case "esp32":
		return ESP32, nil
	case "esp32c3":
		return ESP32C3, nil
	case "esp32s3":
		return ESP32S3, nil
	case "esp32c6":
		return ESP32C6, nil
	case "":
		return Unknown, errors.New("empty chip model")
	default:
		return Unknown, errors.Errorf("unsupported chip model %q", s)
	}
}
