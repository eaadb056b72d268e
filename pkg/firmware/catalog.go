package firmware

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"mpflash/internal/index"
	"mpflash/pkg/chip"
)

// IndexClient fetches the remote firmware index.
type IndexClient interface {
	Fetch(ctx context.Context) ([]index.Entry, error)
}

// Catalog merges the remote firmware index with local firmware files found
// in the working directory.
type Catalog struct {
	index   IndexClient
	workDir string
}

// NewCatalog returns a Catalog scanning workDir for local images.
func NewCatalog(idx IndexClient, workDir string) *Catalog {
	return &Catalog{index: idx, workDir: workDir}
}

// Candidates returns the ordered candidate list for the given chip: remote
// entries first, in index order, then local .bin files sorted by name.
//
// A failed index fetch is not fatal: the session degrades to local files
// only, and degraded reports that so the caller can tell the user. Both
// lists empty is ErrNoCandidates.
func (c *Catalog) Candidates(ctx context.Context, model chip.Model) (candidates []Candidate, degraded bool, err error) {
	entries, fetchErr := c.index.Fetch(ctx)
	if fetchErr != nil {
		logrus.WithError(fetchErr).Warn("firmware index unavailable, using local files only")
		degraded = true
	}

	for _, e := range entries {
		m, perr := chip.Parse(e.Chip)
		if perr != nil {
			logrus.WithField("chip", e.Chip).Debug("skipping index entry for unknown chip")
			continue
		}
		if m != model {
			continue
		}
		candidates = append(candidates, Candidate{
			Origin: Remote,
			Label:  e.Label,
			Source: e.URL,
			Chip:   m,
		})
	}

	locals, lerr := c.localImages()
	if lerr != nil {
		return nil, degraded, lerr
	}
	candidates = append(candidates, locals...)

	if len(candidates) == 0 {
		return nil, degraded, ErrNoCandidates
	}
	return candidates, degraded, nil
}

// localImages lists *.bin files in the working directory, tagged Local.
func (c *Catalog) localImages() ([]Candidate, error) {
	paths, err := filepath.Glob(filepath.Join(c.workDir, "*.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "scan working directory")
	}
	sort.Strings(paths)

	var out []Candidate
	for _, p := range paths {
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		out = append(out, Candidate{
			Origin: Local,
			Label:  filepath.Base(p) + " (local file)",
			Source: p,
			Chip:   chip.Unknown,
		})
	}
	return out, nil
}
