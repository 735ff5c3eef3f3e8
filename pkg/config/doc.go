// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: .env
// files are merged into the process environment first, then the environment
// is parsed into a struct using `env` and `envDefault` tags.
//
//	type Config struct {
//	    SeedPath string `env:"SEED_PATH" envDefault:"/data/seed.txt"`
//	    APIPort  int    `env:"API_PORT" envDefault:"8000"`
//	}
//
//	cfg, err := config.Load[Config]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Configuration is loaded once by the process entry point and passed to
// constructors; library packages never read the environment themselves.
//
// # Error Handling
//
// Failures are wrapped with ErrLoadingEnvFile (an explicit .env file could not
// be read) or ErrParsingConfig (a value is missing or malformed).
package config
