// Package config provides centralized configuration management for AgriTox.
// Defaults are registered on a viper instance, overlaid with the user config
// file (XDG paths via gofulmen/config), environment variables and runtime
// overrides, then decoded into Config with mapstructure.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the config, data and cache directories.
	AppName = "agritox"

	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "AGRITOX_"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex

	configFile string
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetConfigFile selects an explicit config file, bypassing XDG discovery.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// Load loads configuration: defaults, then the user config file, then
// environment variables, then runtime overrides.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	_ = ctx

	v := viper.New()
	SetDefaults(v)

	path, err := resolveConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + "RATE_LIMIT_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit margin: %w", err)
		}
		envOverrides["rate_limit_margin"] = margin
	}

	allOverrides := []map[string]any{envOverrides}
	allOverrides = append(allOverrides, runtimeOverrides...)
	for _, overrides := range allOverrides {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.analyze_timeout", "45s")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ok_ttl", "1h")
	v.SetDefault("cache.unavailable_ttl", "30s")
	v.SetDefault("cache.resolution_ttl", "24h")

	v.SetDefault("sources.timeout", "10s")
	v.SetDefault("sources.pubchem.enabled", true)
	v.SetDefault("sources.pubchem.base_url", "https://pubchem.ncbi.nlm.nih.gov/rest/pug")
	v.SetDefault("sources.echa.enabled", true)
	v.SetDefault("sources.echa.base_url", "https://echa.europa.eu/information-on-chemicals/cl-inventory-database")
	v.SetDefault("sources.epa.enabled", true)
	v.SetDefault("sources.epa.base_url", "https://api-ccte.epa.gov")
	v.SetDefault("sources.epa.api_key", "")

	v.SetDefault("resolver.alias_file", "")
	v.SetDefault("resolver.timeout", "10s")
	v.SetDefault("resolver.wikidata.enabled", true)
	v.SetDefault("resolver.wikidata.base_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("resolver.wikidata.language", "en")
	v.SetDefault("resolver.search.enabled", true)
	v.SetDefault("resolver.search.base_url", "https://html.duckduckgo.com/html/")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("health.enabled", true)

	v.SetDefault("rate_limit_margin", 0.9)
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// resolveConfigFile returns the explicit config file, or the first existing
// XDG candidate, or "" when there is none.
func resolveConfigFile() (string, error) {
	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()

	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	candidates := append([]string{DefaultConfigPath()}, gfconfig.GetAppConfigPaths(AppName)...)
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			candidate = filepath.Join(candidate, "config.yaml")
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
		}
		return candidate, nil
	}
	return "", nil
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "ANALYZE_TIMEOUT", Path: []string{"server", "analyze_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Cache config
		{Name: prefix + "CACHE_ENABLED", Path: []string{"cache", "enabled"}, Type: EnvBool},
		{Name: prefix + "CACHE_OK_TTL", Path: []string{"cache", "ok_ttl"}, Type: EnvString},
		{Name: prefix + "CACHE_UNAVAILABLE_TTL", Path: []string{"cache", "unavailable_ttl"}, Type: EnvString},
		{Name: prefix + "CACHE_RESOLUTION_TTL", Path: []string{"cache", "resolution_ttl"}, Type: EnvString},

		// Source adapters
		{Name: prefix + "SOURCES_TIMEOUT", Path: []string{"sources", "timeout"}, Type: EnvString},
		{Name: prefix + "PUBCHEM_ENABLED", Path: []string{"sources", "pubchem", "enabled"}, Type: EnvBool},
		{Name: prefix + "PUBCHEM_BASE_URL", Path: []string{"sources", "pubchem", "base_url"}, Type: EnvString},
		{Name: prefix + "ECHA_ENABLED", Path: []string{"sources", "echa", "enabled"}, Type: EnvBool},
		{Name: prefix + "ECHA_BASE_URL", Path: []string{"sources", "echa", "base_url"}, Type: EnvString},
		{Name: prefix + "EPA_ENABLED", Path: []string{"sources", "epa", "enabled"}, Type: EnvBool},
		{Name: prefix + "EPA_BASE_URL", Path: []string{"sources", "epa", "base_url"}, Type: EnvString},
		{Name: prefix + "EPA_API_KEY", Path: []string{"sources", "epa", "api_key"}, Type: EnvString},

		// Resolver
		{Name: prefix + "ALIAS_FILE", Path: []string{"resolver", "alias_file"}, Type: EnvString},
		{Name: prefix + "RESOLVER_TIMEOUT", Path: []string{"resolver", "timeout"}, Type: EnvString},
		{Name: prefix + "WIKIDATA_ENABLED", Path: []string{"resolver", "wikidata", "enabled"}, Type: EnvBool},
		{Name: prefix + "SEARCH_ENABLED", Path: []string{"resolver", "search", "enabled"}, Type: EnvBool},
		{Name: prefix + "SEARCH_BASE_URL", Path: []string{"resolver", "search", "base_url"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
