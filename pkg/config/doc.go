// Package config loads environment variables into tagged structs.
//
// Each component of the gateway declares its own Config struct with env tags
// and loads it once at startup:
//
//	type Config struct {
//	    DatabaseURL string `env:"DATABASE_URL,required"`
//	    Debug       bool   `env:"DEBUG" envDefault:"false"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// A .env file in the working directory is applied before parsing; a missing
// file is not an error.
package config
