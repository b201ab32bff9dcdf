package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Engine.SearchRadiusKm)
	assert.Equal(t, 3, cfg.Engine.MaxCandidates)
	assert.Equal(t, 1, cfg.Engine.TollCategory)
	assert.Equal(t, 12000.0, cfg.Engine.Fuel.PricePerUnit)
	assert.Equal(t, 8.0, cfg.Engine.Fuel.KmPerUnit)
	assert.Equal(t, 5.0, cfg.Toll.ThresholdKm)
	assert.Equal(t, 0.2, cfg.Toll.PaddingDeg)
	assert.Equal(t, 100, cfg.Toll.CatalogLimit)
	assert.Equal(t, 30*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, "car", cfg.Routing.Profile)
	assert.Equal(t, "none", cfg.Cache.Backend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_MAX_CANDIDATES", "5")
	t.Setenv("TOLL_MATCH_THRESHOLD_KM", "2.5")
	t.Setenv("ROUTING_BASE_URL", "http://gh:8989/")
	t.Setenv("ROUTE_CACHE", "Redis")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxCandidates)
	assert.Equal(t, 2.5, cfg.Toll.ThresholdKm)
	assert.Equal(t, "http://gh:8989", cfg.Routing.BaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ENGINE_SEARCH_RADIUS_KM: 80\nFUEL_KM_PER_UNIT: 6.5\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Engine.SearchRadiusKm)
	assert.Equal(t, 6.5, cfg.Engine.Fuel.KmPerUnit)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("ENGINE_TOLL_CATEGORY", "9")
	t.Setenv("FUEL_KM_PER_UNIT", "0")

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENGINE_TOLL_CATEGORY")
	assert.Contains(t, err.Error(), "km per fuel unit")
}

func TestGet(t *testing.T) {
	t.Setenv("DISPATCH_TEST_KEY", "value")
	assert.Equal(t, "value", Get("DISPATCH_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", Get("DISPATCH_TEST_MISSING", "fallback"))
}
