package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the locator's Prometheus metrics. A nil *Collector is
// valid and records nothing, so components can be built without metrics
// in tests.
type Collector struct {
	gatherer prometheus.Gatherer

	AssetFetches    *prometheus.CounterVec
	AssetCacheHits  prometheus.Counter
	PinsResolved    *prometheus.CounterVec
	ProviderCalls   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	FallbackRenders prometheus.Counter
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same
// registry returns the already-registered collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_asset_fetches_total",
		Help: "Basemap candidate fetches, labeled by result (ok, error).",
	}, []string{"result"}), "locator_asset_fetches_total")
	if err != nil {
		return nil, err
	}
	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_asset_cache_hits_total",
		Help: "Basemap loads served from the per-map asset cache.",
	}), "locator_asset_cache_hits_total")
	if err != nil {
		return nil, err
	}
	pins, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_pins_total",
		Help: "Location records processed by the resolver, labeled by outcome (structural, projected, dropped).",
	}, []string{"outcome"}), "locator_pins_total")
	if err != nil {
		return nil, err
	}
	calls, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_provider_calls_total",
		Help: "Data provider calls, labeled by operation and result (ok, empty, error).",
	}, []string{"op", "result"}), "locator_provider_calls_total")
	if err != nil {
		return nil, err
	}
	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_http_requests_total",
		Help: "HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "locator_http_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "locator_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route"}), "locator_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}
	fallbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locator_fallback_renders_total",
		Help: "Maps rendered on the substitute tile engine after every basemap candidate failed.",
	}), "locator_fallback_renders_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		AssetFetches:    fetches,
		AssetCacheHits:  hits,
		PinsResolved:    pins,
		ProviderCalls:   calls,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
		FallbackRenders: fallbacks,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) AssetFetched(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.AssetFetches.WithLabelValues(result).Inc()
}

func (c *Collector) AssetCacheHit() {
	if c == nil {
		return
	}
	c.AssetCacheHits.Inc()
}

func (c *Collector) PinOutcome(outcome string) {
	if c == nil {
		return
	}
	c.PinsResolved.WithLabelValues(outcome).Inc()
}

func (c *Collector) ProviderCall(op, result string) {
	if c == nil {
		return
	}
	c.ProviderCalls.WithLabelValues(op, result).Inc()
}

func (c *Collector) FallbackRendered() {
	if c == nil {
		return
	}
	c.FallbackRenders.Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route).Observe(elapsed.Seconds())
}

func registerCounter(reg prometheus.Registerer, ctr prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(ctr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return ctr, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
