package asset

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// maxAssetBytes caps a single basemap download.
const maxAssetBytes = 16 << 20

// Fetcher retrieves the markup behind one resolved candidate location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// StatusError reports a non-2xx response for a candidate.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// HTTPFetcher downloads candidates over HTTP(S).
type HTTPFetcher struct {
	Client  *http.Client
	Limiter *RateLimiter
}

// Fetch issues one GET. Anything but a 2xx status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("reading asset: %w", err)
	}
	return body, nil
}

// DirFetcher reads candidates from a local directory tree.
type DirFetcher struct {
	FS fs.FS
}

// NewDirFetcher serves candidates from dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{FS: os.DirFS(dir)}
}

func (f *DirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	return fs.ReadFile(f.FS, name)
}
