package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all user-facing configuration for provider-locator.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
	Assets   AssetsConfig   `toml:"assets"`
	Map      MapConfig      `toml:"map"`
	Provider ProviderConfig `toml:"provider"`
	Log      LogConfig      `toml:"log"`
}

type DataConfig struct {
	Dir    string `toml:"dir"`
	Driver string `toml:"driver"` // duckdb or sqlite
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// IdleMinutes closes map instances a page has not used for this long.
	IdleMinutes int `toml:"idle_minutes"`
}

// AssetsConfig locates basemap SVGs. Candidate lists are ordered
// templates; {country}, {country_file}, {state} and {abbr} are expanded
// per map context.
type AssetsConfig struct {
	BaseURL      string            `toml:"base_url"`
	Dir          string            `toml:"dir"`
	RateLimit    float64           `toml:"rate_limit"`
	Hero         []string          `toml:"hero"`
	State        []string          `toml:"state"`
	Country      []string          `toml:"country"`
	CountryFiles map[string]string `toml:"country_files"`
}

type MapConfig struct {
	Country      string        `toml:"country"`
	Upcoming     string        `toml:"upcoming"`
	Width        float64       `toml:"width"`
	Height       float64       `toml:"height"`
	MinLabelSize float64       `toml:"min_label_size"`
	Palette      PaletteConfig `toml:"palette"`
}

type PaletteConfig struct {
	Active    string `toml:"active"`
	Upcoming  string `toml:"upcoming"`
	Available string `toml:"available"`
	Selected  string `toml:"selected"`
}

// ProviderConfig selects the data provider. Mode "store" answers from the
// local database; "remote" calls a host's AJAX endpoint.
type ProviderConfig struct {
	Mode      string  `toml:"mode"`
	Endpoint  string  `toml:"endpoint"`
	Nonce     string  `toml:"nonce"`
	RateLimit float64 `toml:"rate_limit"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data:   DataConfig{Dir: "data", Driver: "duckdb"},
		Server: ServerConfig{Host: "localhost", Port: 8080, IdleMinutes: 30},
		Assets: AssetsConfig{
			Dir:       "assets",
			RateLimit: 10,
			Hero: []string{
				"images/usa-maps/usa.svg",
				"images/usa.svg",
			},
			State: []string{
				"images/usa-maps/usa-{abbr}.svg",
				"images/usa-maps/{state}.svg",
				"images/states/{state}.svg",
			},
			Country: []string{
				"images/{country_file}.svg",
			},
			CountryFiles: map[string]string{
				"ireland": "ireland",
				"uae":     "united-arab-emirates",
				"uk":      "united-kingdom",
				"usa":     "usa",
			},
		},
		Map: MapConfig{
			Country:      "usa",
			Width:        810,
			Height:       600,
			MinLabelSize: 20,
			Palette: PaletteConfig{
				Active:    "#2563eb",
				Upcoming:  "#7c3aed",
				Available: "#d1dae3",
				Selected:  "#1d4ed8",
			},
		},
		Provider: ProviderConfig{Mode: "store", RateLimit: 5},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error. A .env file next to the process,
// when present, is loaded first so LOCATOR_* variables can override the
// provider endpoint, nonce and asset base URL.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOCATOR_PROVIDER_ENDPOINT"); v != "" {
		cfg.Provider.Endpoint = v
		cfg.Provider.Mode = "remote"
	}
	if v := os.Getenv("LOCATOR_PROVIDER_NONCE"); v != "" {
		cfg.Provider.Nonce = v
	}
	if v := os.Getenv("LOCATOR_ASSET_BASE_URL"); v != "" {
		cfg.Assets.BaseURL = v
	}
	if v := os.Getenv("LOCATOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Candidates expands the candidate templates for a map context. An empty
// region selects the country-level list: the hero list for the USA and
// the single-country list otherwise.
func (a AssetsConfig) Candidates(country, region, abbr string) []string {
	var templates []string
	switch {
	case region != "":
		templates = a.State
	case country == "usa":
		templates = a.Hero
	default:
		templates = a.Country
	}

	countryFile := country
	if f, ok := a.CountryFiles[country]; ok {
		countryFile = f
	}
	r := strings.NewReplacer(
		"{country_file}", countryFile,
		"{country}", country,
		"{state}", region,
		"{abbr}", abbr,
	)

	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, r.Replace(t))
	}
	return out
}
