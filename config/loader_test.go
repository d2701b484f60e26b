package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/types"
)

func TestLoadFromBytes_MergesOverDefaults(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.LoadFromBytes([]byte(`
name: travel-test
version: 1.2.3
server:
  http:
    port: 9090
cache:
  ttls:
    news: 5m
`))
	require.NoError(t, err)

	assert.Equal(t, "travel-test", cfg.Name)
	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, 30, cfg.Server.HTTP.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTLs["news"])
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTLs["safety_a"])
	assert.Equal(t, "https://restcountries.com/v3.1", cfg.Providers.Country.BaseURL)
}

func TestLoadFromBytes_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SAI_TRAVEL_TEST_GNEWS_KEY", "secret-key")

	cfg, err := NewLoader().LoadFromBytes([]byte(`
providers:
  news:
    api_key: ${SAI_TRAVEL_TEST_GNEWS_KEY}
`))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Providers.News.APIKey)
	assert.Equal(t, "https://gnews.io/api/v4/search", cfg.Providers.News.BaseURL)
}

func TestLoadFromBytes_ValidationFailure(t *testing.T) {
	_, err := NewLoader().LoadFromBytes([]byte(`
server:
  http:
    port: 70000
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
}

func TestLoadFromBytes_ParseFailure(t *testing.T) {
	_, err := NewLoader().LoadFromBytes([]byte("server: [unterminated"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigParseFailed)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := NewLoader().LoadFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestConfigurationManager_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nversion: 2.0.0\n"), 0o600))

	cm, err := NewConfigurationManager(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cm.GetConfig().Name)
	assert.Equal(t, "from-file", cm.GetValue("name", ""))
	assert.Equal(t, "fallback", cm.GetValue("providers.unknown.base_url", "fallback"))

	var catalog types.CatalogConfig
	require.NoError(t, cm.GetAs("catalog", &catalog))
	assert.Equal(t, 8, catalog.Workers)

	paths, err := cm.GetAllPaths()
	require.NoError(t, err)
	assert.Contains(t, paths, "providers.country.base_url")

	require.NoError(t, cm.Start())
	assert.True(t, cm.IsRunning())
	require.NoError(t, cm.Stop())
	assert.False(t, cm.IsRunning())
}

func TestNewStaticManager_Validates(t *testing.T) {
	cfg := NewLoader().Defaults()
	cfg.Catalog.Workers = 0

	_, err := NewStaticManager(context.Background(), cfg)
	assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
}
