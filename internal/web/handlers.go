package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/umarjalal00/location-providers/internal/binder"
	"github.com/umarjalal00/location-providers/internal/fallback"
	"github.com/umarjalal00/location-providers/internal/locator"
	"github.com/umarjalal00/location-providers/internal/logging"
	"github.com/umarjalal00/location-providers/internal/overlay"
	"github.com/umarjalal00/location-providers/internal/provider"
	"github.com/umarjalal00/location-providers/internal/slug"
)

// envelope mirrors the AJAX host's response shape.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func (s *Server) country(r *http.Request) string {
	if c := slug.NormalizeLocation(r.FormValue("country")); c != "" {
		return c
	}
	return s.Country
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	counts, err := s.Data.RegionCounts(r.Context(), s.country(r))
	s.writeEnvelope(w, r, counts, err)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	locs, err := s.Data.Locations(r.Context(), s.country(r), slug.NormalizeRegion(r.FormValue("state")))
	s.writeEnvelope(w, r, locs, err)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Data.EntriesAt(r.Context(), s.country(r),
		slug.NormalizeRegion(r.FormValue("state")), slug.NormalizeLocation(r.FormValue("city")))
	s.writeEnvelope(w, r, entries, err)
}

// handleAjax answers the action-style form POSTs that provider.Remote
// sends, so one locator can serve as another's data host.
func (s *Server) handleAjax(w http.ResponseWriter, r *http.Request) {
	if s.Nonce != "" && r.FormValue("nonce") != s.Nonce {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("-1"))
		return
	}
	switch r.FormValue("action") {
	case provider.ActionStates:
		s.handleStates(w, r)
	case provider.ActionCities:
		s.handleCities(w, r)
	case provider.ActionProviders:
		s.handleProviders(w, r)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("0"))
	}
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := locator.LoadRequest{
		Region: q.Get("state"),
		Map: overlay.Rect{
			Left:   floatParam(q.Get("left")),
			Top:    floatParam(q.Get("top")),
			Width:  floatParam(q.Get("width")),
			Height: floatParam(q.Get("height")),
		},
		Container: overlay.Rect{
			Left: floatParam(q.Get("container_left")),
			Top:  floatParam(q.Get("container_top")),
		},
	}

	page := q.Get("page")
	if _, err := uuid.Parse(page); err != nil {
		page = uuid.NewString()
	}
	w.Header().Set(PageHeader, page)

	v, err := s.Maps.Get(instanceID(page, q.Get("instance"))).Load(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, v)
}

type selectRequest struct {
	Instance string `json:"instance"`
	Region   string `json:"region"`
	Location string `json:"location"`
	Leave    bool   `json:"leave"`
}

func decodeSelect(w http.ResponseWriter, r *http.Request) (selectRequest, bool) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.Instance = strings.TrimSpace(req.Instance)
	return req, true
}

func (s *Server) handleSelectRegion(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelect(w, r)
	if !ok {
		return
	}
	c, ok := s.Maps.Lookup(req.Instance)
	if !ok {
		s.writeError(w, r, locator.ErrNotLoaded)
		return
	}
	v, err := c.SelectRegion(r.Context(), req.Region)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleSelectLocation(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelect(w, r)
	if !ok {
		return
	}
	c, ok := s.Maps.Lookup(req.Instance)
	if !ok {
		s.writeError(w, r, locator.ErrNotLoaded)
		return
	}
	l, err := c.SelectLocation(r.Context(), req.Location)
	if err != nil && l == nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, l)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelect(w, r)
	if !ok {
		return
	}
	if c, ok := s.Maps.Lookup(req.Instance); ok {
		if req.Leave {
			c.LeaveRegion(req.Region)
		} else {
			c.HoverRegion(req.Region)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// instanceID keys a map instance by the page that shows it and its role
// on that page (hero or mini). Loads return it as the view's instance and
// selections send it back.
func instanceID(page, role string) string {
	if role = slug.NormalizeLocation(role); role == "" {
		role = "hero"
	}
	return page + ":" + role
}

func floatParam(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, locator.ErrSuperseded), errors.Is(err, locator.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, binder.ErrUnknownRegion):
		return http.StatusBadRequest
	case errors.Is(err, overlay.ErrNoMarker), errors.Is(err, fallback.ErrUnknownMarker):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.OrNoop(s.Log).Error(r.Context(), "request failed", logging.String("path", r.URL.Path), logging.Err(err))
	}
	http.Error(w, err.Error(), code)
}

// writeEnvelope answers directory queries. Failures are reported in the
// envelope rather than as HTTP errors, as the AJAX host does.
func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		logging.OrNoop(s.Log).Warn(r.Context(), "directory query failed", logging.String("path", r.URL.Path), logging.Err(err))
		writeJSON(w, envelope{Success: false, Data: err.Error()})
		return
	}
	writeJSON(w, envelope{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
