package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Mapbox   MapboxConfig  `json:"mapbox"`
	Geocode  GeocodeConfig `json:"geocode"`
	Markers  MarkerConfig  `json:"markers"`
	Catalog  CatalogConfig `json:"catalog"`
	Cache    CacheConfig   `json:"cache"`
	Sessions SessionConfig `json:"sessions"`
	Org      OrgConfig     `json:"org"`
	Tracing  TracingConfig `json:"tracing"`
	Mocks    MockConfig    `json:"mocks"`
	Logging  LoggingConfig `json:"logging"`
	LogSink  LogSinkConfig `json:"log_sink"`
}

type MapboxConfig struct {
	AccessToken string `json:"access_token"` // server side geocoding
	PublicToken string `json:"public_token"` // handed to the browser map
	BaseURL     string `json:"base_url"`
	Style       string `json:"style"`
}

type GeocodeConfig struct {
	RatePerSec float64       `json:"rate_per_sec"`
	MaxRetries int           `json:"max_retries"`
	Timeout    time.Duration `json:"timeout"`
}

type MarkerConfig struct {
	Concurrency int `json:"concurrency"`
}

type CatalogConfig struct {
	Path string `json:"path"` // empty uses the embedded programs.json
}

type CacheConfig struct {
	Dir         string `json:"dir"`
	AccountName string `json:"account_name"`
	AccountKey  string `json:"-"`
	Container   string `json:"container"`
}

type SessionConfig struct {
	TTL time.Duration `json:"ttl"`
	Max int           `json:"max"`
}

// OrgConfig fills the contact placeholders shown in popups and list entries.
type OrgConfig struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

type TracingConfig struct {
	Endpoint string `json:"endpoint"`
	Insecure bool   `json:"insecure"`
}

func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

type MockConfig struct {
	Enable bool `json:"enable"`
}

type LoggingConfig struct {
	Format string `json:"format"` // json or text
	Level  string `json:"level"`
}

type LogSinkConfig struct {
	AccountName string `json:"account_name"`
	AccountKey  string `json:"-"`
	Container   string `json:"container"`
	BlobName    string `json:"blob_name"`
}

func (l LogSinkConfig) Enabled() bool {
	return l.AccountName != "" && l.AccountKey != "" && l.Container != ""
}

func Load() (*Config, error) {
	config := &Config{
		Mapbox: MapboxConfig{
			AccessToken: strings.TrimSpace(os.Getenv("MAPBOX_ACCESS_TOKEN")),
			PublicToken: strings.TrimSpace(os.Getenv("MAPBOX_PUBLIC_TOKEN")),
			BaseURL:     getEnvOrDefault("MAPBOX_BASE_URL", "https://api.mapbox.com"),
			Style:       getEnvOrDefault("MAPBOX_STYLE", "mapbox://styles/mapbox/streets-v12"),
		},
		Catalog: CatalogConfig{
			Path: os.Getenv("CATALOG_PATH"),
		},
		Cache: CacheConfig{
			Dir:         getEnvOrDefault("CACHE_DIR", "cache"),
			AccountName: os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			AccountKey:  os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			Container:   getEnvOrDefault("CACHE_CONTAINER", "geocode"),
		},
		Org: OrgConfig{
			Name:    getEnvOrDefault("ORG_NAME", "Girls on the Run"),
			Phone:   getEnvOrDefault("ORG_PHONE", "(555)-55555"),
			Website: getEnvOrDefault("ORG_WEBSITE", "http://girlsingear.org/"),
		},
		Tracing: TracingConfig{
			Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
		},
		Logging: LoggingConfig{
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		},
		LogSink: LogSinkConfig{
			AccountName: os.Getenv("LOGSINK_ACCOUNT_NAME"),
			AccountKey:  os.Getenv("LOGSINK_ACCOUNT_KEY"),
			Container:   os.Getenv("LOGSINK_CONTAINER"),
			BlobName:    os.Getenv("LOGSINK_BLOB_NAME"),
		},
	}
	if config.Mapbox.PublicToken == "" {
		config.Mapbox.PublicToken = config.Mapbox.AccessToken
	}

	var err error
	if config.Geocode.RatePerSec, err = getFloatOrDefault("GEOCODE_RATE_PER_SEC", 10); err != nil {
		return nil, err
	}
	if config.Geocode.MaxRetries, err = getIntOrDefault("GEOCODE_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if config.Geocode.Timeout, err = getDurationOrDefault("GEOCODE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.Markers.Concurrency, err = getIntOrDefault("MARKER_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if config.Sessions.TTL, err = getDurationOrDefault("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if config.Sessions.Max, err = getIntOrDefault("MAX_SESSIONS", 1000); err != nil {
		return nil, err
	}
	if config.Mocks.Enable, err = getBoolOrDefault("MOCKS", false); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate catches settings that would only fail later at request time.
func (c *Config) Validate() error {
	if c.Geocode.RatePerSec <= 0 {
		return fmt.Errorf("GEOCODE_RATE_PER_SEC must be positive, got %v", c.Geocode.RatePerSec)
	}
	if c.Geocode.MaxRetries < 0 {
		return fmt.Errorf("GEOCODE_MAX_RETRIES must not be negative, got %d", c.Geocode.MaxRetries)
	}
	if c.Markers.Concurrency <= 0 {
		return fmt.Errorf("MARKER_CONCURRENCY must be positive, got %d", c.Markers.Concurrency)
	}
	if c.Sessions.Max <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.Sessions.Max)
	}
	return nil
}

// UseMapbox reports whether live geocoding is configured.
func (c *Config) UseMapbox() bool {
	return !c.Mocks.Enable && c.Mapbox.AccessToken != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getFloatOrDefault(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
