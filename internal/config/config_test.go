package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setBase(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "10")
}

func TestLoadMemoryDriverNeedsNoDatabase(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_DRIVER", StorageMemory)
	t.Setenv("WELCOME_TOKENS", "250")

	cfg := Load()
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Empty(t, cfg.DBHost)
	assert.EqualValues(t, 250, cfg.WelcomeTokens)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.BootstrapOperatorPassword)
}

func TestLoadBootstrapOperator(t *testing.T) {
	setBase(t)
	t.Setenv("STORAGE_DRIVER", StorageMemory)
	t.Setenv("BOOTSTRAP_OPERATOR_EMAIL", "ops@example.com")
	t.Setenv("BOOTSTRAP_OPERATOR_PASSWORD", "change-me-now")

	cfg := Load()
	assert.Equal(t, "ops@example.com", cfg.BootstrapOperatorEmail)
	assert.Equal(t, "change-me-now", cfg.BootstrapOperatorPassword)
}

func TestLoadMySQLDriver(t *testing.T) {
	setBase(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_USER", "lottery")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "travel_lottery")

	cfg := Load()
	assert.Equal(t, StorageMySQL, cfg.StorageDriver)
	assert.Equal(t, "db", cfg.DBHost)
	assert.EqualValues(t, 100, cfg.WelcomeTokens)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 2*time.Second, c.RefillInterval)
	assert.Equal(t, 10*time.Second, c.TTL)

	t.Setenv("RATE_LIMIT_BURST", "30")
	assert.Equal(t, 30, LoadRateLimitConfig().Capacity)
}

func TestCacheAndSchedulerDefaults(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
	assert.Greater(t, c.ImmutableTTL, c.TTL)

	t.Setenv("DRAW_SCHEDULER_INTERVAL", "10ms")
	assert.Equal(t, time.Second, LoadSchedulerConfig().Interval)

	t.Setenv("AMQP_ENABLED", "off")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	a := LoadAMQPConfig()
	assert.False(t, a.Enabled)
	assert.Equal(t, "amqp://broker:5672/", a.URL)
	assert.Equal(t, "ticket.purchased", a.TicketQueue)
	assert.Equal(t, 256, a.PublishBuffer)
}
