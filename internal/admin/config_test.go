package admin_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/internal/admin"
	"github.com/dmitrymomot/hookgate/pkg/config"
)

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("JWT_SECRET_KEY", "test-signing-key-at-least-32-bytes")
	t.Setenv("JWT_ALGORITHM", "HS256")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "60")

	var cfg admin.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, 60, cfg.TokenTTLMinutes)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
}
