package config

import (
	"time"
)

// Config represents the complete application configuration. Values are
// layered: built-in defaults, then the user config file, then environment
// variables, then runtime overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AnalyzeTimeout  time.Duration `mapstructure:"analyze_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains source record and resolution cache settings.
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	OKTTL          time.Duration `mapstructure:"ok_ttl"`
	UnavailableTTL time.Duration `mapstructure:"unavailable_ttl"`
	ResolutionTTL  time.Duration `mapstructure:"resolution_ttl"`
}

// SourcesConfig configures the external data source adapters.
type SourcesConfig struct {
	// Timeout bounds each adapter fetch.
	Timeout time.Duration `mapstructure:"timeout"`

	PubChem SourceConfig `mapstructure:"pubchem"`
	ECHA    SourceConfig `mapstructure:"echa"`
	EPA     EPAConfig    `mapstructure:"epa"`
}

// SourceConfig is the per-source switch and endpoint.
type SourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// EPAConfig adds the optional CompTox API key.
type EPAConfig struct {
	SourceConfig `mapstructure:",squash"`
	APIKey       string `mapstructure:"api_key"`
}

// ResolverConfig configures product name resolution.
type ResolverConfig struct {
	// AliasFile points at a YAML file extending the built-in alias table.
	AliasFile string        `mapstructure:"alias_file"`
	Timeout   time.Duration `mapstructure:"timeout"`

	Wikidata WikidataConfig `mapstructure:"wikidata"`
	Search   SourceConfig   `mapstructure:"search"`
}

// WikidataConfig configures the structured alias lookup.
type WikidataConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether /metrics is exposed
	Enabled bool `mapstructure:"enabled"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}
