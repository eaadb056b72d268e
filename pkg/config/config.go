// Package config holds the tool configuration.
package config

import "time"

// Config is the tunable surface of the tool. Values not present in the
// config file fall back to defaults.
type Config interface {
	// WorkDir is where local firmware images are scanned for and downloads
	// are stored.
	WorkDir() string
	// IndexURL is the remote firmware index location.
	IndexURL() string
	// EsptoolPath is the flashing tool binary, looked up on PATH when not
	// absolute.
	EsptoolPath() string
	// ProbeBaud is the baud rate used for fingerprinting.
	ProbeBaud() int
	// PrimaryBaud is the first write-flash baud rate.
	PrimaryBaud() int
	// FallbackBaud is the write-flash retry baud rate.
	FallbackBaud() int
	// ProbeTimeout bounds each serial read during fingerprinting.
	ProbeTimeout() time.Duration
	// IndexTimeout bounds the remote index fetch.
	IndexTimeout() time.Duration

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
