package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/pkg/config"
)

type testConfig struct {
	Name    string        `env:"CONFIG_TEST_NAME" envDefault:"gateway"`
	Limit   int           `env:"CONFIG_TEST_LIMIT" envDefault:"100"`
	Window  time.Duration `env:"CONFIG_TEST_WINDOW" envDefault:"60s"`
	Origins []string      `env:"CONFIG_TEST_ORIGINS" envDefault:"http://localhost:3000"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "gateway", cfg.Name)
	assert.Equal(t, 100, cfg.Limit)
	assert.Equal(t, 60*time.Second, cfg.Window)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "custom")
	t.Setenv("CONFIG_TEST_LIMIT", "5")
	t.Setenv("CONFIG_TEST_ORIGINS", "https://a.example.com,https://b.example.com")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 5, cfg.Limit)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Origins)
}

func TestLoad_RequiredMissing(t *testing.T) {
	type strictConfig struct {
		Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
	}

	var cfg strictConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
