// Package config loads placeresolver settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andreiashu/placeresolver/openmeteo"
	"github.com/andreiashu/placeresolver/weather"
)

// Config holds all placeresolver configuration.
type Config struct {
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Gazetteer GazetteerConfig `yaml:"gazetteer"`
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Units is the default temperature unit: celsius or fahrenheit.
	Units string `yaml:"units"`
}

// GeocodingConfig configures the online geocoding lookup.
type GeocodingConfig struct {
	BaseURL  string `yaml:"base_url"`
	Count    int    `yaml:"count"`
	Language string `yaml:"language"`
	Timeout  string `yaml:"timeout"`
}

// ForecastConfig configures the current-weather client.
type ForecastConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// GazetteerConfig configures the offline Geonames lookup.
type GazetteerConfig struct {
	Enabled       bool   `yaml:"enabled"` // use the gazetteer instead of the geocoding API
	DataDir       string `yaml:"data_dir"`
	CacheDir      string `yaml:"cache_dir"`
	FuzzyDistance int    `yaml:"fuzzy_distance"`
	MaxResults    int    `yaml:"max_results"`
}

// HistoryConfig configures the search history. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Geocoding: GeocodingConfig{
			BaseURL:  openmeteo.DefaultGeocodingURL,
			Count:    10,
			Language: "en",
			Timeout:  "10s",
		},
		Forecast: ForecastConfig{
			BaseURL: openmeteo.DefaultForecastURL,
			Timeout: "10s",
		},
		Gazetteer: GazetteerConfig{
			DataDir:    "./geonames-data",
			CacheDir:   "./geonames-cache",
			MaxResults: 10,
		},
		History: HistoryConfig{
			Path: "placeresolver.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Units: string(weather.Fahrenheit),
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies PLACERESOLVER_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLACERESOLVER_GEOCODING_URL"); v != "" {
		c.Geocoding.BaseURL = v
	}
	if v := os.Getenv("PLACERESOLVER_FORECAST_URL"); v != "" {
		c.Forecast.BaseURL = v
	}
	if v := os.Getenv("PLACERESOLVER_UNITS"); v != "" {
		c.Units = v
	}
	if v := os.Getenv("PLACERESOLVER_OFFLINE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Gazetteer.Enabled = b
		}
	}
	if v := os.Getenv("PLACERESOLVER_GEONAMES_DIR"); v != "" {
		c.Gazetteer.DataDir = v
	}
	if v := os.Getenv("PLACERESOLVER_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("PLACERESOLVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PLACERESOLVER_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// GetGeocodingTimeout returns the geocoding request timeout as a duration.
func (c *Config) GetGeocodingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Geocoding.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetForecastTimeout returns the forecast request timeout as a duration.
func (c *Config) GetForecastTimeout() time.Duration {
	d, err := time.ParseDuration(c.Forecast.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetUnits returns the configured default units.
func (c *Config) GetUnits() weather.Units {
	u, err := weather.ParseUnits(c.Units)
	if err != nil {
		return weather.Fahrenheit
	}
	return u
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := weather.ParseUnits(c.Units); err != nil {
		return fmt.Errorf("invalid units: %w", err)
	}
	if c.Geocoding.Count < 1 || c.Geocoding.Count > 100 {
		return fmt.Errorf("invalid geocoding count: %d (valid: 1-100)", c.Geocoding.Count)
	}
	if c.Gazetteer.FuzzyDistance < 0 {
		return fmt.Errorf("invalid gazetteer fuzzy distance: %d", c.Gazetteer.FuzzyDistance)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}
