package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/umarjalal00/location-providers/internal/asset"
	"github.com/umarjalal00/location-providers/internal/binder"
	"github.com/umarjalal00/location-providers/internal/locator"
	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/provider"
	"github.com/umarjalal00/location-providers/internal/slug"
	"github.com/umarjalal00/location-providers/internal/store"
)

func openStore() (*store.Store, error) {
	return store.New(dataDir, cfg.Data.Driver)
}

// dataProvider picks the configured source. The returned close func is
// always non-nil.
func dataProvider() (provider.DataProvider, func(), error) {
	switch cfg.Provider.Mode {
	case "remote":
		if cfg.Provider.Endpoint == "" {
			return nil, nil, fmt.Errorf("provider mode remote needs provider.endpoint")
		}
		return provider.NewRemote(cfg.Provider.Endpoint, cfg.Provider.Nonce, cfg.Provider.RateLimit), func() {}, nil
	case "", "store":
		s, err := openStore()
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider mode %q", cfg.Provider.Mode)
	}
}

// assetFetcher reads basemaps over HTTP when a base URL is configured and
// from the local asset directory otherwise.
func assetFetcher() asset.Fetcher {
	base := cfg.Assets.BaseURL
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return &asset.HTTPFetcher{
			Client:  &http.Client{Timeout: 30 * time.Second},
			Limiter: asset.NewRateLimiter(cfg.Assets.RateLimit),
		}
	}
	return asset.NewDirFetcher(cfg.Assets.Dir)
}

func controllerOptions(metrics *observability.Collector) locator.Options {
	p := cfg.Map.Palette
	return locator.Options{
		Country:  slug.NormalizeLocation(cfg.Map.Country),
		Assets:   cfg.Assets,
		Upcoming: slug.ParseList(cfg.Map.Upcoming),
		Viewport: model.Viewport{Width: cfg.Map.Width, Height: cfg.Map.Height},
		Binder: binder.Options{
			Palette:      binder.Palette{Active: p.Active, Upcoming: p.Upcoming, Available: p.Available, Selected: p.Selected},
			MinLabelSize: cfg.Map.MinLabelSize,
		},
		Metrics: metrics,
		Log:     logger,
	}
}

func newRegistry(data provider.DataProvider, metrics *observability.Collector) *locator.Registry {
	fetcher := assetFetcher()
	opts := controllerOptions(metrics)
	return locator.NewRegistry(func(id string) *locator.Controller {
		return locator.New(id, data, fetcher, opts)
	})
}
