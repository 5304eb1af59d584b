package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.ServerAddress)
	assert.True(t, cfg.IsDevelopment())
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.WorkspacePath)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pimble.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_address: \":9999\"\nlog_level: debug\ncache_max_items: 7\n"), 0o644))

	t.Setenv("PIMBLE_CONFIG", path)
	t.Setenv("PIMBLE_SERVER_ADDRESS", ":7777")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Env wins over file, file wins over defaults.
	assert.Equal(t, ":7777", cfg.ServerAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.CacheMaxItems)
}

func TestLoadConfig_EnvParsing(t *testing.T) {
	t.Setenv("PIMBLE_CACHE_TTL", "90s")
	t.Setenv("PIMBLE_ENABLE_TRACING", "true")
	t.Setenv("PIMBLE_TRACING_SAMPLE_RATE", "0.25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 0.25, cfg.TracingSampleRate)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.ServerAddress = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"negative cache bound", func(c *Config) { c.CacheMaxItems = -1 }},
		{"sample rate above one", func(c *Config) { c.TracingSampleRate = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_MissingFileFails(t *testing.T) {
	t.Setenv("PIMBLE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)
}
