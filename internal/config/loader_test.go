package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every XDG lookup at a temp dir so a developer's own config
// file never leaks into the test.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 45*time.Second, cfg.Server.AnalyzeTimeout)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("agritox"), "agritox.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)
		assert.Equal(t, "", cfg.Store.AuthToken)

		// Verify cache defaults
		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, time.Hour, cfg.Cache.OKTTL)
		assert.Equal(t, 30*time.Second, cfg.Cache.UnavailableTTL)
		assert.Equal(t, 24*time.Hour, cfg.Cache.ResolutionTTL)

		// Verify source defaults
		assert.Equal(t, 10*time.Second, cfg.Sources.Timeout)
		assert.True(t, cfg.Sources.PubChem.Enabled)
		assert.True(t, cfg.Sources.ECHA.Enabled)
		assert.True(t, cfg.Sources.EPA.Enabled)
		assert.Equal(t, "https://api-ccte.epa.gov", cfg.Sources.EPA.BaseURL)
		assert.Empty(t, cfg.Sources.EPA.APIKey)

		// Verify resolver defaults
		assert.Equal(t, 10*time.Second, cfg.Resolver.Timeout)
		assert.True(t, cfg.Resolver.Wikidata.Enabled)
		assert.Equal(t, "en", cfg.Resolver.Wikidata.Language)
		assert.True(t, cfg.Resolver.Search.Enabled)

		// Verify rate limit defaults
		assert.Equal(t, 0.9, cfg.RateLimitMargin)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)

		assert.True(t, cfg.Metrics.Enabled)
		assert.True(t, cfg.Health.Enabled)
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify overrides were applied
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Verify non-overridden values remain default
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("AGRITOX_PORT", "3000")
		t.Setenv("AGRITOX_LOG_LEVEL", "warn")
		t.Setenv("AGRITOX_METRICS_ENABLED", "false")
		t.Setenv("AGRITOX_RATE_LIMIT_MARGIN", "0.8")
		t.Setenv("AGRITOX_EPA_API_KEY", "secret")
		t.Setenv("AGRITOX_SEARCH_ENABLED", "false")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify env overrides were applied
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 0.8, cfg.RateLimitMargin)
		assert.Equal(t, "secret", cfg.Sources.EPA.APIKey)
		assert.False(t, cfg.Resolver.Search.Enabled)
	})

	t.Run("InvalidMargin", func(t *testing.T) {
		isolate(t)
		t.Setenv("AGRITOX_RATE_LIMIT_MARGIN", "most")

		_, err := Load(ctx)
		require.Error(t, err)
	})

	// Test config precedence: runtime > env > file > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
  host: file-host
logging:
  level: error
cache:
  ok_ttl: 2h
`), 0o600))
		SetConfigFile(path)
		t.Setenv("AGRITOX_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Runtime override should take precedence over env var
		assert.Equal(t, 5000, cfg.Server.Port)
		// File values survive where nothing overrides them
		assert.Equal(t, "file-host", cfg.Server.Host)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, 2*time.Hour, cfg.Cache.OKTTL)
		assert.Equal(t, 30*time.Second, cfg.Cache.UnavailableTTL)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600))
		SetConfigFile(path)
		t.Setenv("AGRITOX_PORT", "4000")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load(ctx)
		require.Error(t, err)
	})

	t.Run("XDGConfigFile", func(t *testing.T) {
		isolate(t)

		dir := gfconfig.GetAppConfigDir(AppName)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logging:\n  profile: STRUCTURED\n"), 0o600))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
	})
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	// Load config first
	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Test GetConfig returns the same instance
	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	// Verify critical env var mappings exist
	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["AGRITOX_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["AGRITOX_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["AGRITOX_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["AGRITOX_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["AGRITOX_EPA_API_KEY"], "EPA_API_KEY env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	// Test duration parsing from string env var
	t.Run("DurationFromEnv", func(t *testing.T) {
		isolate(t)
		t.Setenv("AGRITOX_READ_TIMEOUT", "45s")
		t.Setenv("AGRITOX_SHUTDOWN_TIMEOUT", "5m")
		t.Setenv("AGRITOX_SOURCES_TIMEOUT", "3s")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 3*time.Second, cfg.Sources.Timeout)
	})
}

func TestConfigReload(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	// Load initial config
	cfg1, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg1)
	initialPort := cfg1.Server.Port

	// Reload with different runtime overrides
	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	require.NotNil(t, cfg2)

	// Verify reload updated the config
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)

	// Verify GetConfig returns the updated config
	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}
