package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when environment variables cannot be parsed
// into the target struct.
var ErrParsingConfig = errors.New("failed to parse environment variables into config")

// ErrNilPointer is returned when Load receives a nil target.
var ErrNilPointer = errors.New("nil pointer provided to config loader")

var dotenvOnce sync.Once

// Load parses environment variables into cfg based on its env tags.
// The default .env file is loaded once per process before the first parse;
// its absence is ignored.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
