package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, "300-M", cfg.RateLimit)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.True(t, cfg.Development())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/stock")
	t.Setenv("DB_MAX_CONNS", "40")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("WORKER_POLL_INTERVAL", "500ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Development())
	assert.Equal(t, int32(40), cfg.Storage.MaxConns)
	assert.True(t, cfg.Storage.AutoMigrate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "unknown driver")
	})

	t.Run("bad values are all reported", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("DB_MAX_CONNS", "many")
		t.Setenv("IDEMPOTENCY_TTL", "forever")
		_, err := FromEnv()
		require.Error(t, err)
		assert.ErrorContains(t, err, "DB_MAX_CONNS")
		assert.ErrorContains(t, err, "IDEMPOTENCY_TTL")
	})
}
