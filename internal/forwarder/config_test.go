package forwarder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/pkg/config"
)

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("FORWARDING_TIMEOUT_SECONDS", "10")
	t.Setenv("FORWARDING_MAX_RETRIES", "3")

	var cfg forwarder.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
}
