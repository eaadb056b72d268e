package firmware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var imageVersionRe = regexp.MustCompile(`-v(\d+\.\d+(?:\.\d+)?)\.bin$`)

// Materialize makes the candidate available as a file on disk and returns
// its path. Local candidates are only checked for existence. Remote
// candidates are downloaded into the working directory; when the primary
// URL fails, the matching MicroPython GitHub release asset is tried once.
func (c *Catalog) Materialize(ctx context.Context, cand Candidate) (string, error) {
	if cand.Origin == Local {
		if _, err := os.Stat(cand.Source); err != nil {
			return "", errors.Wrap(err, "local firmware file")
		}
		return cand.Source, nil
	}

	u, err := url.Parse(cand.Source)
	if err != nil {
		return "", errors.Wrap(err, "parse firmware URL")
	}
	name := path.Base(u.Path)
	dest := filepath.Join(c.workDir, name)

	if err := download(ctx, cand.Source, dest); err != nil {
		alt, ok := fallbackURL(name)
		if !ok {
			return "", err
		}
		logrus.WithError(err).WithField("url", alt).Warn("download failed, trying release mirror")
		if err := download(ctx, alt, dest); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// fallbackURL maps an image filename to the corresponding MicroPython GitHub
// release asset. It needs the version token embedded in the filename.
func fallbackURL(name string) (string, bool) {
	m := imageVersionRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return "https://github.com/micropython/micropython/releases/download/v" + m[1] + "/" + name, true
}

func download(ctx context.Context, srcURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return errors.Wrap(err, "build download request")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "download firmware")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firmware download returned %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "create firmware file")
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, "downloading "+filepath.Base(dest))
	_, err = io.Copy(io.MultiWriter(f, bar), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return errors.Wrap(err, "write firmware file")
	}
	return nil
}
