package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 24, cfg.CacheTTLHours)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("DATA_DIR", "/tmp/folio")
	t.Setenv("CACHE_TTL_HOURS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "/tmp/folio", cfg.DataDir)
	assert.Equal(t, 6, cfg.CacheTTLHours)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DataDir: "", CacheTTLHours: 24}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DataDir: "./data", CacheTTLHours: 0}
	assert.Error(t, cfg.Validate())

	cfg = &Config{DataDir: "./data", CacheTTLHours: 1}
	assert.NoError(t, cfg.Validate())
}
