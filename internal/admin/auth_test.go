package admin_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/internal/admin"
)

func testConfig() admin.Config {
	return admin.Config{
		Username:        "admin",
		Password:        "s3cret",
		JWTSecret:       "test-signing-key-at-least-32-bytes",
		JWTAlgorithm:    "HS256",
		TokenTTLMinutes: 60,
		CORSOrigins:     []string{"*"},
	}
}

func TestTokenService_IssueVerify(t *testing.T) {
	t.Parallel()

	svc, err := admin.NewTokenService(testConfig())
	require.NoError(t, err)

	token, expiresAt, err := svc.Issue("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	t.Parallel()

	svc, err := admin.NewTokenService(testConfig())
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWTSecret = "a-completely-different-signing-key"
	other, err := admin.NewTokenService(otherCfg)
	require.NoError(t, err)

	token, _, err := other.Issue("admin")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, admin.ErrInvalidToken)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	svc, err := admin.NewTokenService(testConfig(), admin.WithTokenTTL(time.Millisecond))
	require.NoError(t, err)

	token, _, err := svc.Issue("admin")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, admin.ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	t.Parallel()

	svc, err := admin.NewTokenService(testConfig())
	require.NoError(t, err)

	_, err = svc.Verify("not.a.token")
	assert.ErrorIs(t, err, admin.ErrInvalidToken)
}

func TestNewTokenService_ConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty secret", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.JWTSecret = ""
		_, err := admin.NewTokenService(cfg)
		assert.ErrorIs(t, err, admin.ErrMissingSigningKey)
	})

	t.Run("non-hmac algorithm", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.JWTAlgorithm = "RS256"
		_, err := admin.NewTokenService(cfg)
		assert.ErrorIs(t, err, admin.ErrUnsupportedAlgorithm)
	})

	t.Run("none algorithm", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.JWTAlgorithm = "none"
		_, err := admin.NewTokenService(cfg)
		assert.ErrorIs(t, err, admin.ErrUnsupportedAlgorithm)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.JWTAlgorithm = "XX999"
		_, err := admin.NewTokenService(cfg)
		assert.ErrorIs(t, err, admin.ErrUnsupportedAlgorithm)
	})

	t.Run("hs512 accepted", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.JWTAlgorithm = "HS512"
		svc, err := admin.NewTokenService(cfg)
		require.NoError(t, err)

		token, _, err := svc.Issue("admin")
		require.NoError(t, err)
		_, err = svc.Verify(token)
		assert.NoError(t, err)
	})
}
