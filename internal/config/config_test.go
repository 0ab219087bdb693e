package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptIntDefaultsAndParsing(t *testing.T) {
	assert.Equal(t, 600, optInt("HOLD_TTL_SECONDS_TEST_UNSET", 600))

	t.Setenv("HOLD_TTL_SECONDS_TEST", "120")
	assert.Equal(t, 120, optInt("HOLD_TTL_SECONDS_TEST", 600))

	t.Setenv("HOLD_TTL_SECONDS_TEST", "not-a-number")
	assert.Equal(t, 600, optInt("HOLD_TTL_SECONDS_TEST", 600))
}

func TestRateLimitConfigDefaultsAndClamping(t *testing.T) {
	cfg := LoadRateLimitConfig()
	require.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)

	// TTL must cover several refill rounds so idle buckets do not reset
	// to full too eagerly.
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2m")
	t.Setenv("RATE_LIMIT_TTL", "1m")
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 2*time.Minute, cfg.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.TTL)
}

func TestRateLimitLegacyBurstOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "25")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 25, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	require.True(t, cfg.Enabled)
	assert.True(t, cfg.Methods["GET"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 15*time.Second, cfg.TTL)
	assert.Equal(t, 1048576, cfg.MaxBodyBytes)

	t.Setenv("CACHE_METHODS", "get, head")
	cfg = LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
}
