package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Load populates the process environment from .env files and parses it into a
// new T based on its `env` struct tags.
//
// Without arguments the default .env file in the working directory is loaded
// if it exists. Explicitly named files must exist. Variables that are already
// set in the environment are never overridden by file values.
//
// Example:
//
//	type ServerConfig struct {
//		Host string `env:"API_HOST" envDefault:"0.0.0.0"`
//		Port int    `env:"API_PORT" envDefault:"8000"`
//	}
//
//	cfg, err := config.Load[ServerConfig]()
func Load[T any](files ...string) (T, error) {
	var zero T

	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zero, errors.Join(ErrLoadingEnvFile, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return zero, errors.Join(ErrLoadingEnvFile, err)
	}

	cfg, err := env.ParseAs[T]()
	if err != nil {
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// Parse builds a T from the given variables only, ignoring the process
// environment. Useful in tests and for values read with godotenv.Read.
func Parse[T any](environ map[string]string) (T, error) {
	cfg, err := env.ParseAsWithOptions[T](env.Options{Environment: environ})
	if err != nil {
		var zero T
		return zero, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// This is useful for configurations that are required for the application to start.
func MustLoad[T any](files ...string) T {
	cfg, err := Load[T](files...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return cfg
}
