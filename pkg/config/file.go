package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"mpflash/pkg/utils/ptr"
)

var defaultFileConfig = &RawFileConfig{
	WorkDir:  ptr.To(""), // resolved to ~/Documents/esp-tinkering lazily
	IndexURL: ptr.To("https://micropython.org/resources/firmware/index.json"),
	// The plain binary name so PATH decides; pip and homebrew installs both
	// end up there.
	EsptoolPath: ptr.To("esptool"),
	ProbeBaud:   ptr.To(115200),
	// 460800 first: the empirically reliable fast rate for ESP32 boards with
	// decent cabling. 115200 is the conservative fallback.
	PrimaryBaud:     ptr.To(460800),
	FallbackBaud:    ptr.To(115200),
	ProbeTimeoutSec: ptr.To(3),
	IndexTimeoutSec: ptr.To(10),
}

var _ Config = &File{}

// File is a Config backed by a JSON file. Missing file or missing fields
// mean defaults.
type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

// RawFileConfig is the on-disk shape. Pointer fields distinguish "absent"
// from zero values so defaults only fill actual gaps.
type RawFileConfig struct {
	WorkDir         *string `json:"workDir,omitempty"`
	IndexURL        *string `json:"indexUrl,omitempty"`
	EsptoolPath     *string `json:"esptoolPath,omitempty"`
	ProbeBaud       *int    `json:"probeBaud,omitempty"`
	PrimaryBaud     *int    `json:"primaryBaud,omitempty"`
	FallbackBaud    *int    `json:"fallbackBaud,omitempty"`
	ProbeTimeoutSec *int    `json:"probeTimeoutSeconds,omitempty"`
	IndexTimeoutSec *int    `json:"indexTimeoutSeconds,omitempty"`
}

// NewFile loads a file-backed config from configPath.
func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	if err := f.Load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) WorkDir() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.WorkDir != nil && *f.c.WorkDir != "" {
		return *f.c.WorkDir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Documents", "esp-tinkering")
}

func (f *File) IndexURL() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.IndexURL != nil {
		return *f.c.IndexURL
	}
	return *defaultFileConfig.IndexURL
}

func (f *File) EsptoolPath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.EsptoolPath != nil {
		return *f.c.EsptoolPath
	}
	return *defaultFileConfig.EsptoolPath
}

func (f *File) ProbeBaud() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.ProbeBaud != nil {
		return *f.c.ProbeBaud
	}
	return *defaultFileConfig.ProbeBaud
}

func (f *File) PrimaryBaud() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.PrimaryBaud != nil {
		return *f.c.PrimaryBaud
	}
	return *defaultFileConfig.PrimaryBaud
}

func (f *File) FallbackBaud() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.FallbackBaud != nil {
		return *f.c.FallbackBaud
	}
	return *defaultFileConfig.FallbackBaud
}

func (f *File) ProbeTimeout() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sec := *defaultFileConfig.ProbeTimeoutSec
	if f.c.ProbeTimeoutSec != nil {
		sec = *f.c.ProbeTimeoutSec
	}
	return time.Duration(sec) * time.Second
}

func (f *File) IndexTimeout() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sec := *defaultFileConfig.IndexTimeoutSec
	if f.c.IndexTimeoutSec != nil {
		sec = *f.c.IndexTimeoutSec
	}
	return time.Duration(sec) * time.Second
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file means all defaults. Do not make f.c nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrap(err, "open config file")
	}
	defer fp.Close()

	c := &RawFileConfig{}
	if err := json.NewDecoder(fp).Decode(c); err != nil {
		return pkgerrors.Wrap(err, "decode config file")
	}
	f.c = c

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(f.filepath), 0o755); err != nil {
		return pkgerrors.Wrap(err, "create config directory")
	}

	b, err := json.MarshalIndent(f.c, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "encode config")
	}

	return pkgerrors.Wrap(os.WriteFile(f.filepath, b, 0o644), "write config file")
}
