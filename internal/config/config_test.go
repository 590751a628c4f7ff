package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "all", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "dev", cfg.Version)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("RUN_MODE", "janitor")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("SWEEP_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "janitor", cfg.Mode)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("RUN_MODE", "worker")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_MODE")
}
