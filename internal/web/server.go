package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/umarjalal00/location-providers/internal/locator"
	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/provider"
)

//go:embed all:static
var staticFS embed.FS

// Server serves the locator page, the directory API and the map API.
type Server struct {
	Data     provider.DataProvider
	Maps     *locator.Registry
	Country  string
	AssetDir string
	// Nonce, when set, is required on AJAX action requests.
	Nonce   string
	Addr    string
	Metrics *observability.Collector
	Log     logging.Logger
	// IdleTimeout closes map instances unused for this long. Zero keeps
	// them until shutdown.
	IdleTimeout time.Duration
}

// PageHeader carries the page id issued by the map endpoint. Clients send
// it back as the page parameter so every map on one page shares it.
const PageHeader = "X-Locator-Page"

// Handler builds the router.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/api/states", s.handleStates)
	r.Get("/api/cities", s.handleCities)
	r.Get("/api/providers", s.handleProviders)
	r.Post("/api/ajax", s.handleAjax)

	r.Route("/api/map", func(r chi.Router) {
		r.Get("/", s.handleMap)
		r.Post("/select-region", s.handleSelectRegion)
		r.Post("/select-location", s.handleSelectLocation)
		r.Post("/hover", s.handleHover)
	})

	r.Handle("/metrics", s.Metrics.Handler())
	if s.AssetDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.AssetDir))))
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating sub filesystem: %w", err)
	}
	r.Handle("/*", http.FileServer(http.FS(staticSub)))
	return r, nil
}

// ListenAndServe starts the HTTP server and stops it when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: s.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	if s.IdleTimeout > 0 {
		go s.sweep(ctx)
	}

	logging.OrNoop(s.Log).Info(ctx, "serving", logging.String("url", "http://"+s.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweep evicts idle map instances until ctx is done.
func (s *Server) sweep(ctx context.Context) {
	t := time.NewTicker(s.IdleTimeout / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Maps.Sweep(s.IdleTimeout); n > 0 {
				logging.OrNoop(s.Log).Debug(ctx, "closed idle map instances", logging.Int("closed", n), logging.Int("live", s.Maps.Len()))
			}
		}
	}
}

// observe records request counts and latency by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.Metrics.ObserveHTTP(route, code, time.Since(start))
	})
}
