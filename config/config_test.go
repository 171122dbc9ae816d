package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Addr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	t.Setenv("ADDR", ":8080")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:eventpro.db")
	t.Setenv("CACHE_TTL_SECONDS", "0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:eventpro.db", cfg.DatabaseDSN)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 4, cfg.BcryptCost)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\nGIN_MODE=debug\nJWT_SECRET=from-file\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, "from-file", cfg.JWTSecret)
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)

	t.Setenv("JWT_SECRET", "   ")
	_, err = LoadConfig()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}
