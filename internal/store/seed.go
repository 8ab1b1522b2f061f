package store

import (
	"context"
	"fmt"
	"time"

	"github.com/umarjalal00/location-providers/internal/model"
)

type seedTerm struct {
	taxonomy, slug, name string
}

var seedTerms = []seedTerm{
	{TaxCountry, "usa", "USA"},
	{TaxCountry, "ireland", "Ireland"},
	{TaxCountry, "uae", "UAE"},
	{TaxCountry, "uk", "UK"},
	{TaxState, "florida", "Florida"},
	{TaxState, "texas", "Texas"},
	{TaxState, "california", "California"},
	{TaxCity, "miami", "Miami"},
	{TaxCity, "houston", "Houston"},
	{TaxCity, "los-angeles", "Los Angeles"},
	{TaxCity, "dublin", "Dublin"},
	{TaxCity, "dubai", "Dubai"},
	{TaxCity, "london", "London"},
}

func seedProvider(name, country, state, city, address string, lat, lng float64, phone, email string) model.Provider {
	return model.Provider{
		Name:      name,
		Address:   address,
		Phone:     phone,
		Email:     email,
		Latitude:  model.Float(lat),
		Longitude: model.Float(lng),
		Country:   country,
		Region:    state,
		City:      city,
	}
}

var seedProviders = []model.Provider{
	seedProvider("Miami Aerial Services", "usa", "florida", "miami", "123 Ocean Drive, Miami, FL 33139", 25.7617, -80.1918, "+1 305-555-0123", "info@miamiaerial.com"),
	seedProvider("Houston Sky Photography", "usa", "texas", "houston", "456 Main St, Houston, TX 77002", 29.7604, -95.3698, "+1 713-555-0124", "contact@houstonsky.com"),
	seedProvider("LA Drone Solutions", "usa", "california", "los-angeles", "789 Hollywood Blvd, Los Angeles, CA 90028", 34.0522, -118.2437, "+1 323-555-0125", "hello@ladrone.com"),
	seedProvider("Dublin Aerial View", "ireland", "", "dublin", "O'Connell St, Dublin 1, Ireland", 53.3498, -6.2603, "+353 1 555 0126", "info@dublinaerial.ie"),
	seedProvider("Dubai Sky Services", "uae", "", "dubai", "Sheikh Zayed Road, Dubai, UAE", 25.2048, 55.2708, "+971 4 555 0127", "contact@dubaisky.ae"),
	seedProvider("London Aerial Photography", "uk", "", "london", "Westminster Bridge Rd, London SE1 7PB", 51.5074, -0.1278, "+44 20 555 0128", "info@londonaerial.co.uk"),
}

// Seed loads the sample directory when no providers exist yet. It reports
// whether anything was written.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	if s.ProviderCount() > 0 {
		return false, nil
	}
	for _, t := range seedTerms {
		if err := s.AddTerm(ctx, t.taxonomy, t.slug, t.name); err != nil {
			return false, err
		}
	}
	for _, p := range seedProviders {
		if _, err := s.AddProvider(ctx, p); err != nil {
			return false, fmt.Errorf("seeding %s: %w", p.Name, err)
		}
	}
	if err := s.SetMeta("seeded_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return true, err
	}
	return true, nil
}
