// Package config loads server configuration from the environment.
//
// A .env file in the working directory is loaded first if present, then
// the process environment is parsed into the Config struct.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string   `env:"ADDR" envDefault:":8080"`
	DatabasePath  string   `env:"DATABASE_PATH" envDefault:"./data/roster.db"`
	LogLevel      string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
	MaxTxAttempts int      `env:"MAX_TX_ATTEMPTS" envDefault:"3"`
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
