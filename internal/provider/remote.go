package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/umarjalal00/location-providers/internal/model"
)

// maxResponseBytes caps one AJAX response body.
const maxResponseBytes = 8 << 20

// AJAX action names exposed by the host.
const (
	ActionStates    = "get_states"
	ActionCities    = "get_cities"
	ActionProviders = "get_providers"
)

// Remote calls a host's admin-ajax style endpoint: form POSTs carrying an
// action and nonce, answered with {"success": bool, "data": ...}.
type Remote struct {
	Endpoint   string
	Nonce      string
	HTTPClient *http.Client

	limiter *rate.Limiter
}

// NewRemote creates a client. A non-positive rps disables rate limiting.
func NewRemote(endpoint, nonce string, rps float64) *Remote {
	r := &Remote{Endpoint: endpoint, Nonce: nonce, HTTPClient: &http.Client{}}
	if rps > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// call posts one action and decodes the envelope's data into out. A
// well-formed envelope with success=false leaves out untouched: the host
// uses it for "nothing here", not for errors.
func (r *Remote) call(ctx context.Context, action string, form url.Values, out any) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limiter: %w", ErrProviderFailure, action, err)
		}
	}

	form.Set("action", action)
	form.Set("nonce", r.Nonce)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %s: creating request: %w", ErrProviderFailure, action, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProviderFailure, action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: reading response: %w", ErrProviderFailure, action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrProviderFailure, action, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %s: parsing response: %w", ErrProviderFailure, action, err)
	}
	if !env.Success || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %s: parsing data: %w", ErrProviderFailure, action, err)
	}
	return nil
}

func (r *Remote) RegionCounts(ctx context.Context, country string) ([]model.RegionCount, error) {
	var out []model.RegionCount
	err := r.call(ctx, ActionStates, url.Values{"country": {country}}, &out)
	return out, err
}

func (r *Remote) Locations(ctx context.Context, country, region string) ([]model.LocationRecord, error) {
	var out []model.LocationRecord
	err := r.call(ctx, ActionCities, url.Values{"country": {country}, "state": {region}}, &out)
	return out, err
}

func (r *Remote) EntriesAt(ctx context.Context, country, region, location string) ([]model.Provider, error) {
	var out []model.Provider
	err := r.call(ctx, ActionProviders, url.Values{"country": {country}, "state": {region}, "city": {location}}, &out)
	return out, err
}
