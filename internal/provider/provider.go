// Package provider defines the directory data contract the map consumes
// and a client for hosts that expose it over AJAX actions.
package provider

import (
	"context"
	"errors"

	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/observability"
)

// ErrProviderFailure marks transport or authorization failures, as
// opposed to a call that succeeded with no records.
var ErrProviderFailure = errors.New("data provider failure")

// DataProvider answers the three directory queries. Empty region or
// location arguments mean "no filter".
type DataProvider interface {
	RegionCounts(ctx context.Context, country string) ([]model.RegionCount, error)
	Locations(ctx context.Context, country, region string) ([]model.LocationRecord, error)
	EntriesAt(ctx context.Context, country, region, location string) ([]model.Provider, error)
}

// Instrument wraps p so every call is counted by operation and result.
func Instrument(p DataProvider, metrics *observability.Collector) DataProvider {
	if metrics == nil {
		return p
	}
	return &instrumented{next: p, metrics: metrics}
}

type instrumented struct {
	next    DataProvider
	metrics *observability.Collector
}

func (i *instrumented) record(op string, n int, err error) {
	switch {
	case err != nil:
		i.metrics.ProviderCall(op, "error")
	case n == 0:
		i.metrics.ProviderCall(op, "empty")
	default:
		i.metrics.ProviderCall(op, "ok")
	}
}

func (i *instrumented) RegionCounts(ctx context.Context, country string) ([]model.RegionCount, error) {
	out, err := i.next.RegionCounts(ctx, country)
	i.record("region_counts", len(out), err)
	return out, err
}

func (i *instrumented) Locations(ctx context.Context, country, region string) ([]model.LocationRecord, error) {
	out, err := i.next.Locations(ctx, country, region)
	i.record("locations", len(out), err)
	return out, err
}

func (i *instrumented) EntriesAt(ctx context.Context, country, region, location string) ([]model.Provider, error) {
	out, err := i.next.EntriesAt(ctx, country, region, location)
	i.record("entries", len(out), err)
	return out, err
}
