//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agritox/agritox/internal/config"
	"github.com/agritox/agritox/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/agritox.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSourceCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	record := core.NewSourceRecord("echa", core.SourceRoleRegulatory)
	record.HazardCodes.Add("H411", "H302")
	record.RecommendedUse = core.StringPtr("Herbicide")
	record.IdentityFields["ec_number"] = "213-997-4"

	require.NoError(t, store.SetCachedRecord(ctx, "glyphosate", record, time.Hour))

	cached, err := store.GetCachedRecord(ctx, "echa", "glyphosate")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.True(t, cached.Provenance.FromCache)
	require.NotNil(t, cached.Provenance.CacheExpiresAt)
	require.Equal(t, []string{"H302", "H411"}, cached.HazardCodes.Sorted())
	require.NotNil(t, cached.PrecautionaryCodes)
	require.Equal(t, "Herbicide", *cached.RecommendedUse)
	require.Equal(t, "213-997-4", cached.StringField("ec_number"))

	missing, err := store.GetCachedRecord(ctx, "pubchem", "glyphosate")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMigrateStoresToolVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.Migrate(ctx))

	record := core.NewSourceRecord("pubchem", core.SourceRoleIdentity)
	record.Provenance.ToolVersion = "1.2.0"
	require.NoError(t, store.SetCachedRecord(ctx, "atrazine", record, time.Hour))

	var version string
	err := store.DB.QueryRowContext(ctx,
		`SELECT tool_version FROM source_cache WHERE source_id = ? AND name = ?`, "pubchem", "atrazine").Scan(&version)
	require.NoError(t, err)
	require.Equal(t, "1.2.0", version)
}

func TestSourceCacheExpires(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Clock = func() time.Time { return now }

	record := core.NewSourceRecord("epa", core.SourceRoleIdentity)
	require.NoError(t, store.SetCachedRecord(ctx, "atrazine", record, 30*time.Second))

	now = now.Add(time.Minute)
	cached, err := store.GetCachedRecord(ctx, "epa", "atrazine")
	require.NoError(t, err)
	require.Nil(t, cached)

	purged, err := store.PurgeCache(ctx, true)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged.Sources)
}

func TestResolutionCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	result := &core.ResolutionResult{
		ResolvedName:    core.StringPtr("glyphosate"),
		Method:          core.MethodSearchMatch,
		Confidence:      core.ConfidenceMedium,
		SourceReference: core.StringPtr("https://label.example"),
	}
	require.NoError(t, store.SetCachedResolution(ctx, "roundupmax", result, time.Hour))

	cached, err := store.GetCachedResolution(ctx, "roundupmax")
	require.NoError(t, err)
	require.True(t, cached.FromCache)
	require.Equal(t, "glyphosate", cached.Name())
	require.Equal(t, core.MethodSearchMatch, cached.Method)

	purged, err := store.PurgeCache(ctx, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged.Resolutions)

	cached, err = store.GetCachedResolution(ctx, "roundupmax")
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestRateLimitRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	backoff := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	state := &core.RateLimitState{
		RequestCount: 3,
		WindowStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		BackoffUntil: &backoff,
	}
	require.NoError(t, store.UpdateRateLimit(ctx, "echa.europa.eu", state))

	loaded, err := store.GetRateLimit(ctx, "echa.europa.eu")
	require.NoError(t, err)
	require.Equal(t, 3, loaded.RequestCount)
	require.Equal(t, backoff, *loaded.BackoffUntil)

	entries, err := store.ListRateLimits(ctx, RateLimitQuery{Prefix: "echa"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	removed, err := store.ResetRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
