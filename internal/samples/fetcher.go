package samples

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/neuropathx/neuropathx/internal/ingest"
)

// Fetcher retrieves sample bytes from a local directory or an HTTP base URL
type Fetcher struct {
	Root       string
	HTTPClient *http.Client
}

// NewFetcher creates a fetcher rooted at a directory or an http(s) URL
func NewFetcher(root string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Root: root,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *Fetcher) remote() bool {
	return strings.HasPrefix(f.Root, "http://") || strings.HasPrefix(f.Root, "https://")
}

// Fetch loads a sample and wraps it as an ingestion candidate. Validation is
// left to ingestion so samples go through the same checks as uploads.
func (f *Fetcher) Fetch(ctx context.Context, samplePath string) (ingest.RawFile, error) {
	clean := strings.TrimPrefix(path.Clean("/"+samplePath), "/")
	if clean == "" {
		return ingest.RawFile{}, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	if !f.remote() {
		local := filepath.Join(f.Root, filepath.FromSlash(clean))
		slog.Debug("Reading sample from disk", "path", local)
		return ingest.ReadFile(local)
	}

	url := strings.TrimRight(f.Root, "/") + "/" + clean
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ingest.RawFile{}, fmt.Errorf("failed to create new request: %w", err)
	}

	slog.Debug("Fetching sample", "url", url)
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return ingest.RawFile{}, fmt.Errorf("failed to fetch sample: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ingest.RawFile{}, fmt.Errorf("failed to fetch sample: %s returned status %d", url, resp.StatusCode)
	}

	// One byte past the limit is enough for ingestion to reject it
	data, err := io.ReadAll(io.LimitReader(resp.Body, ingest.MaxBytes+1))
	if err != nil {
		return ingest.RawFile{}, fmt.Errorf("failed to read sample data: %w", err)
	}

	name := path.Base(clean)
	mimeType := ingest.NormalizeType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = ingest.DetectType(name, data)
	}

	return ingest.NewRawFile(name, mimeType, data), nil
}
