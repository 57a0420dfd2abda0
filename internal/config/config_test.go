package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageTypeMemory, cfg.Storage.Type)
	assert.Equal(t, 15*time.Second, cfg.Match.AttackCooldown)
	assert.Equal(t, 5, cfg.Match.MaxAmmo)
	assert.Equal(t, 71, cfg.Grader.LanguageID)
	assert.Equal(t, 15, cfg.Grader.MaxPolls)
	assert.False(t, cfg.Grader.UseJudge0())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("ATTACK_COOLDOWN", "5s")
	t.Setenv("JUDGE0_API_KEY", "secret")
	t.Setenv("WS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Storage.RedisURL)
	assert.Equal(t, 5*time.Second, cfg.Match.AttackCooldown)
	assert.True(t, cfg.Grader.UseJudge0())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsRedisWithoutURL(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "redis")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid STORAGE_TYPE")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, LogConfig{Level: tt.level}.SlogLevel())
		})
	}
}
