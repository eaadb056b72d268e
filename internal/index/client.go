// Package index fetches the remote firmware index.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Entry is one row of the remote index: a downloadable firmware image for a
// specific chip. Entries arrive ordered newest-stable first, then older
// stable builds, then development builds.
type Entry struct {
	Chip  string `json:"chip"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Client fetches the firmware index over HTTP. Each call re-fetches; the
// index is small and caching it across sessions would only hide new releases.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient returns a Client for the given index URL. The timeout bounds the
// whole fetch so an unreachable index degrades the session instead of
// hanging it.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads and decodes the index.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	logrus.WithField("url", c.url).Debug("fetching firmware index")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build index request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetch firmware index")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("firmware index returned %s: %s", resp.Status, string(body))
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, pkgerrors.Wrap(err, "decode firmware index")
	}

	logrus.WithField("entries", len(entries)).Debug("firmware index fetched")
	return entries, nil
}
