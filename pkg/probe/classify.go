package probe

import (
	"regexp"
	"strings"
)

var micropythonVersionRe = regexp.MustCompile(`(?i)micropython v?(\d+\.\d+(?:\.\d+)?)`)

// Classify maps a captured probe transcript to a firmware classification.
//
// Precedence is fixed: MicroPython > ESP-IDF > Arduino > Unknown. A
// MicroPython banner wins outright even when the transcript also mentions
// ESP-IDF, because MicroPython builds print the IDF version they were built
// against during boot. A bare mention of "esp32" with no firmware banner is
// treated as ambiguous bootloader noise: it classifies ESP-IDF with Low
// confidence, and ranks below an explicit Arduino marker.
func Classify(raw string) Result {
	res := Result{Raw: raw, Type: Unknown, Confidence: Low}

	if strings.TrimSpace(raw) == "" {
		res.Type = NoResponse
		return res
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "micropython"):
		res.Type = MicroPython
		res.Confidence = High
		if m := micropythonVersionRe.FindStringSubmatch(raw); m != nil {
			res.Version = m[1]
		}
	case strings.Contains(lower, "esp-idf"):
		res.Type = ESPIDF
		res.Confidence = High
	case strings.Contains(lower, "arduino"):
		res.Type = Arduino
		res.Confidence = High
	case strings.Contains(lower, "esp32"):
		res.Type = ESPIDF
		res.Confidence = Low
	}

	return res
}
