package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 20, cfg.Suggest.RetrievalTopK)
	assert.Equal(t, 10, cfg.Suggest.MaxSuggestions)
	assert.Equal(t, 5*time.Minute, cfg.Suggest.CacheTTL)
	assert.InDelta(t, 0.3, cfg.Suggest.ConfidenceFloor, 1e-9)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	const yamlBody = `
server:
  port: 9090
catalog:
  sources:
    - /tmp/catalog.csv
suggest:
  max_suggestions: 5
  cache_ttl: 2m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"/tmp/catalog.csv"}, cfg.Catalog.Sources)
	assert.Equal(t, 5, cfg.Suggest.MaxSuggestions)
	assert.Equal(t, 2*time.Minute, cfg.Suggest.CacheTTL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 20, cfg.Suggest.RetrievalTopK)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("CATALOG_PATH", "/data/override.csv")
	t.Setenv("REDIS_URL", "redis://cache-host:6379")
	t.Setenv("VECTOR_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data/override.csv", cfg.Catalog.Sources[0], "env path is tried first")
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache-host:6379", cfg.Cache.Redis.Addr)
	assert.False(t, cfg.Vector.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, false},
		{"no catalog sources", func(c *Config) { c.Catalog.Sources = nil }, false},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, false},
		{"top_k zero", func(c *Config) { c.Suggest.RetrievalTopK = 0 }, false},
		{"max_suggestions zero", func(c *Config) { c.Suggest.MaxSuggestions = 0 }, false},
		{"max_suggestions over cap", func(c *Config) { c.Suggest.MaxSuggestions = 21 }, false},
		{"max_suggestions at cap", func(c *Config) { c.Suggest.MaxSuggestions = 20 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
