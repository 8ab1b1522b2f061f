// Package asset loads basemap markup from an ordered list of candidate
// locations and memoizes successful loads for the lifetime of the Loader.
package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/observability"
)

// ErrAssetUnavailable is returned when no candidate could be loaded.
var ErrAssetUnavailable = errors.New("asset unavailable")

// Asset is a loaded basemap.
type Asset struct {
	URL    string
	Markup string
	Cached bool
}

// Loader tries candidates in order and caches the first success per
// resolved location. Failed fetches are never cached.
type Loader struct {
	fetcher Fetcher
	base    string
	metrics *observability.Collector
	log     logging.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewLoader builds a Loader. base is prefixed to relative candidates; it
// may be an http(s) URL prefix or empty for fetchers that take paths.
func NewLoader(f Fetcher, base string, metrics *observability.Collector, log logging.Logger) *Loader {
	return &Loader{
		fetcher: f,
		base:    base,
		metrics: metrics,
		log:     logging.OrNoop(log).With(logging.String("component", "asset")),
		cache:   make(map[string]string),
	}
}

// Resolve turns a candidate into the location handed to the fetcher.
func (l *Loader) Resolve(candidate string) string {
	if l.base == "" || strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return candidate
	}
	return strings.TrimSuffix(l.base, "/") + "/" + strings.TrimPrefix(candidate, "/")
}

// Load returns the first loadable candidate. Cached candidates are checked
// first, in order, so a repeated request for the same list performs no
// fetches. Otherwise candidates are fetched one at a time; a failure moves
// on to the next one.
func (l *Loader) Load(ctx context.Context, candidates []string) (Asset, error) {
	resolved := make([]string, len(candidates))
	for i, c := range candidates {
		resolved[i] = l.Resolve(c)
	}

	l.mu.Lock()
	for _, u := range resolved {
		if markup, ok := l.cache[u]; ok {
			l.mu.Unlock()
			l.metrics.AssetCacheHit()
			l.log.Debug(ctx, "asset cache hit", logging.String("url", u))
			return Asset{URL: u, Markup: markup, Cached: true}, nil
		}
	}
	l.mu.Unlock()

	var errs []error
	for _, u := range resolved {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		body, err := l.fetcher.Fetch(ctx, u)
		if err != nil {
			l.metrics.AssetFetched(false)
			l.log.Debug(ctx, "asset candidate failed", logging.String("url", u), logging.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		l.metrics.AssetFetched(true)

		markup := string(body)
		l.mu.Lock()
		l.cache[u] = markup
		l.mu.Unlock()

		l.log.Debug(ctx, "asset loaded", logging.String("url", u), logging.Int("bytes", len(body)))
		return Asset{URL: u, Markup: markup}, nil
	}

	l.log.Info(ctx, "no basemap candidate available", logging.Strings("candidates", resolved))
	if len(errs) == 0 {
		return Asset{}, fmt.Errorf("%w: no candidates", ErrAssetUnavailable)
	}
	return Asset{}, fmt.Errorf("%w: %w", ErrAssetUnavailable, errors.Join(errs...))
}

// Len returns the number of cached assets.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Forget drops one cached location.
func (l *Loader) Forget(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, url)
}
