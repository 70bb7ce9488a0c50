package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "SESSION", cfg.Session.CookieName)
	assert.Equal(t, int64(300000), cfg.Session.CleanupFixedDelayMs)
	assert.Equal(t, 5*time.Minute, cfg.Session.CleanupFixedDelay())
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, OverflowDropOldest, cfg.Stats.OverflowPolicy)
	assert.Equal(t, 1024, cfg.Stats.QueueSize)
	assert.Equal(t, 5, cfg.Image.MaxPerPost)
	assert.Equal(t, []string{"jpeg", "jpg", "png", "gif", "webp"}, cfg.Image.AllowedExtensions)
	assert.True(t, cfg.UsesInMemoryStorage())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_CLEANUP_FIXED_DELAY_MS", "1500")
	t.Setenv("STATS_OVERFLOW_POLICY", "BLOCK")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SESSION_COOKIE_SAMESITE", "strict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.CleanupFixedDelay())
	assert.Equal(t, OverflowBlock, cfg.Stats.OverflowPolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Session.SameSite)
}

func TestLoad_UnparsableValuesAreRejected(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"integer", "STATS_WORKERS", "many"},
		{"int64", "IMAGE_MAX_FILE_SIZE", "10MB"},
		{"bare number duration", "SESSION_TIMEOUT", "30"},
		{"boolean", "DATABASE_AUTO_MIGRATE", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
			assert.Contains(t, err.Error(), tt.val)
		})
	}
}

func TestLoad_ReportsEveryUnparsableValue(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_TIMEOUT", "30")
	t.Setenv("HTTP_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TIMEOUT")
	assert.Contains(t, err.Error(), "HTTP_PORT")
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 7070\nsession_timeout: 10m\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Minute, cfg.Session.Timeout)
}

func TestLoad_ProductionRequiresDatabase(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required in production")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Stats.QueueSize = 0
	cfg.Stats.OverflowPolicy = "spill"
	cfg.Session.CleanupFixedDelayMs = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATS_QUEUE_SIZE")
	assert.Contains(t, err.Error(), "STATS_OVERFLOW_POLICY")
	assert.Contains(t, err.Error(), "SESSION_CLEANUP_FIXED_DELAY_MS")
}
