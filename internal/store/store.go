package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/slug"
)

// Taxonomies used in the terms table.
const (
	TaxCountry = "country"
	TaxState   = "state"
	TaxCity    = "city"
)

// Store persists the provider directory in DuckDB or SQLite and answers
// the data-provider queries from it.
type Store struct {
	DB      *sql.DB
	DataDir string
	Driver  string
}

// New opens (or creates) a database in dataDir. driver is "duckdb"
// (default) or "sqlite".
func New(dataDir, driver string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var file string
	switch driver {
	case "", "duckdb":
		driver, file = "duckdb", "locator.duckdb"
	case "sqlite":
		file = "locator.sqlite"
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := sql.Open(driver, filepath.Join(dataDir, file))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{DB: db, DataDir: dataDir, Driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS terms (
			taxonomy TEXT NOT NULL,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (taxonomy, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS providers (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			latitude DOUBLE,
			longitude DOUBLE,
			country TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// AddTerm inserts a taxonomy term, keeping an existing name.
func (s *Store) AddTerm(ctx context.Context, taxonomy, termSlug, name string) error {
	_, err := s.DB.ExecContext(ctx, "INSERT OR IGNORE INTO terms (taxonomy, slug, name) VALUES (?, ?, ?)", taxonomy, termSlug, name)
	if err != nil {
		return fmt.Errorf("inserting %s term %q: %w", taxonomy, termSlug, err)
	}
	return nil
}

// AddProvider stores p, assigning a UUID when it has no ID. Missing
// country/state/city terms are created with titleized names.
func (s *Store) AddProvider(ctx context.Context, p model.Provider) (model.Provider, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Link == "" {
		p.Link = "/provider/" + slug.NormalizeLocation(p.Name)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()

	terms := []struct{ tax, slug, name string }{
		{TaxCountry, p.Country, slug.Titleize(p.Country)},
		{TaxState, p.Region, slug.Titleize(p.Region)},
		{TaxCity, p.City, p.CityName},
	}
	for _, t := range terms {
		if t.slug == "" {
			continue
		}
		name := t.name
		if name == "" {
			name = slug.Titleize(t.slug)
		}
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO terms (taxonomy, slug, name) VALUES (?, ?, ?)", t.tax, t.slug, name); err != nil {
			return p, fmt.Errorf("inserting %s term: %w", t.tax, err)
		}
	}

	var seq int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM providers").Scan(&seq); err != nil {
		return p, fmt.Errorf("next sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO providers
		(id, seq, name, address, phone, email, website, latitude, longitude, country, state, city, link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, seq, p.Name, p.Address, p.Phone, p.Email, p.Website,
		nullFloat(p.Latitude), nullFloat(p.Longitude), p.Country, p.Region, p.City, p.Link)
	if err != nil {
		return p, fmt.Errorf("inserting provider %q: %w", p.Name, err)
	}
	return p, tx.Commit()
}

// RegionCounts reports every state term with its provider count,
// including states with no providers.
func (s *Store) RegionCounts(ctx context.Context, country string) ([]model.RegionCount, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT t.slug, t.name, COUNT(p.id)
		FROM terms t
		LEFT JOIN providers p ON p.state = t.slug AND (? = '' OR p.country = ?)
		WHERE t.taxonomy = ?
		GROUP BY t.slug, t.name
		ORDER BY t.slug`, country, country, TaxState)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RegionCount
	for rows.Next() {
		var rc model.RegionCount
		if err := rows.Scan(&rc.Slug, &rc.Name, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Locations lists the distinct cities of matching providers in the order
// they were first added. Each city carries the coordinates of the first
// provider recorded in it.
func (s *Store) Locations(ctx context.Context, country, region string) ([]model.LocationRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT p.city, COALESCE(t.name, p.city), MIN(p.seq) AS first_seq
		FROM providers p
		LEFT JOIN terms t ON t.taxonomy = ? AND t.slug = p.city
		WHERE p.city <> '' AND (? = '' OR p.country = ?) AND (? = '' OR p.state = ?)
		GROUP BY p.city, t.name
		ORDER BY first_seq`, TaxCity, country, country, region, region)
	if err != nil {
		return nil, err
	}

	var out []model.LocationRecord
	for rows.Next() {
		var rec model.LocationRecord
		var first int
		if err := rows.Scan(&rec.RawSlug, &rec.Name, &first); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		var lat, lng sql.NullFloat64
		err := s.DB.QueryRowContext(ctx, "SELECT latitude, longitude FROM providers WHERE city = ? ORDER BY seq LIMIT 1", out[i].RawSlug).Scan(&lat, &lng)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("coordinates for %s: %w", out[i].RawSlug, err)
		}
		out[i].Latitude = floatPtr(lat)
		out[i].Longitude = floatPtr(lng)
	}
	return out, nil
}

// EntriesAt lists providers matching every non-empty filter.
func (s *Store) EntriesAt(ctx context.Context, country, region, location string) ([]model.Provider, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT p.id, p.name, p.address, p.phone, p.email, p.website,
			p.latitude, p.longitude, p.country, p.state, p.city, COALESCE(t.name, ''), p.link
		FROM providers p
		LEFT JOIN terms t ON t.taxonomy = ? AND t.slug = p.city
		WHERE (? = '' OR p.country = ?) AND (? = '' OR p.state = ?) AND (? = '' OR p.city = ?)
		ORDER BY p.seq`, TaxCity, country, country, region, region, location, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		var p model.Provider
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.Email, &p.Website,
			&lat, &lng, &p.Country, &p.Region, &p.City, &p.CityName, &p.Link); err != nil {
			return nil, err
		}
		p.Latitude = floatPtr(lat)
		p.Longitude = floatPtr(lng)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProviderCount returns the number of stored providers.
func (s *Store) ProviderCount() int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM providers").Scan(&n)
	return n
}

// TermCount returns the number of terms in one taxonomy.
func (s *Store) TermCount(taxonomy string) int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM terms WHERE taxonomy = ?", taxonomy).Scan(&n)
	return n
}

// ProviderCountByCountry returns provider counts per country slug.
func (s *Store) ProviderCountByCountry() map[string]int {
	counts := make(map[string]int)
	rows, err := s.DB.Query("SELECT country, COUNT(*) FROM providers GROUP BY country")
	if err != nil {
		return counts
	}
	defer rows.Close()
	for rows.Next() {
		var country string
		var n int
		if rows.Scan(&country, &n) == nil {
			counts[country] = n
		}
	}
	return counts
}

// SetMeta records a key/value pair such as the last seed time.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.DB.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// Meta returns a stored value, or "" when unset.
func (s *Store) Meta(key string) string {
	var v sql.NullString
	s.DB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	return v.String
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}
