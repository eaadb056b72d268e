// Package firmware assembles the list of flashable firmware images for a
// device and materializes the chosen one on disk.
package firmware

import (
	"github.com/pkg/errors"

	"mpflash/pkg/chip"
)

// Origin states where a candidate comes from.
type Origin string

const (
	// Remote candidates come from the firmware index and must be downloaded.
	Remote Origin = "remote"
	// Local candidates are .bin files already present in the working
	// directory.
	Local Origin = "local"
)

// Candidate is one selectable firmware image.
type Candidate struct {
	Origin Origin
	// Label is the human-readable menu entry.
	Label string
	// Source is a download URL for Remote candidates and a filesystem path
	// for Local ones.
	Source string
	// Chip is the variant the image targets. Local files carry no reliable
	// chip metadata and are tagged Unknown.
	Chip chip.Model
}

// ErrNoCandidates means neither the remote index nor the working directory
// produced anything flashable.
var ErrNoCandidates = errors.New("no firmware candidates available")
