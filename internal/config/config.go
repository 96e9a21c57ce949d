package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string        `env:"ADDR" envDefault:":3001"`
	GracePeriod    time.Duration `env:"GRACE_PERIOD" envDefault:"30s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	CatalogPath    string        `env:"CATALOG_PATH"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads configuration from the environment, with .env as a convenience
// for local development. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
