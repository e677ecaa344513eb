package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/internal/gateway"
	"github.com/dmitrymomot/hookgate/pkg/config"
)

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "100")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "60")
	t.Setenv("REPLAY_PROTECTION_WINDOW_SECONDS", "300")
	t.Setenv("MAX_PAYLOAD_SIZE_BYTES", "1000000")

	var cfg gateway.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 60, cfg.RateLimitWindowSeconds)
	assert.Equal(t, 300, cfg.ReplayWindowSeconds)
	assert.EqualValues(t, 1_000_000, cfg.MaxPayloadSize)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, 5*time.Minute, cfg.ReplayWindow())
}
