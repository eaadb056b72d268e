package flash

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// failurePatterns maps substrings of esptool diagnostic output to failure
// classes, checked in order. The matching is deliberately loose: esptool's
// wording shifts between releases, but these fragments have been stable.
var failurePatterns = []struct {
	needle  string
	outcome Outcome
}{
	{"could not open", DeviceNotFound},
	{"no such device", DeviceNotFound},
	{"port doesn't exist", DeviceNotFound},
	{"no such file", FileNotFound},
	{"file not found", FileNotFound},
	{"timed out", Timeout},
	{"timeout", Timeout},
}

// classifyFailure buckets a failed tool invocation by its diagnostic text.
// Anything unrecognized is a ProtocolError, the retryable default, since an
// unknown esptool failure on a live port is most often baud or cabling.
func classifyFailure(output string, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	text := strings.ToLower(output + "\n" + err.Error())
	for _, p := range failurePatterns {
		if strings.Contains(text, p.needle) {
			return p.outcome
		}
	}
	return ProtocolError
}
