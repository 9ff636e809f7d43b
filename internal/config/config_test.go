package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+): switch to dir, restore on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"AUTH_JWT_SECRET", "AUTH_TOKEN_TTL_DAYS", "AUTH_LEGACY_TOKENS_ENABLED", "REDIS_DB", "APP_ENV"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.UsesDefaultSecret())
	assert.Equal(t, 30, cfg.Auth.TokenTTLDays)
	assert.True(t, cfg.Auth.LegacyTokensEnabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.True(t, cfg.App.IsDevelopment())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.Redis.UserCacheTTL())
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "a-much-better-secret-of-enough-length")
	t.Setenv("AUTH_TOKEN_TTL_DAYS", "7")
	t.Setenv("AUTH_LEGACY_TOKENS_ENABLED", "false")
	t.Setenv("APP_ENV", "production")
	t.Setenv("USER_CACHE_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Auth.UsesDefaultSecret())
	assert.Equal(t, 7, cfg.Auth.TokenTTLDays)
	assert.False(t, cfg.Auth.LegacyTokensEnabled)
	assert.False(t, cfg.App.IsDevelopment())
	assert.Zero(t, cfg.Redis.UserCacheTTL())
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{JWTSecret: "", TokenTTLDays: 30}}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "x"
	cfg.Auth.TokenTTLDays = -1
	assert.Error(t, cfg.Validate())

	cfg.Auth.TokenTTLDays = 1
	assert.NoError(t, cfg.Validate())
}
