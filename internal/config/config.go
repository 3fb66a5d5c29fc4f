package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/gridquiz.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// PublicURL is the externally reachable base URL, used when rendering
	// join links into QR codes.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// SeedDemo creates a demo teacher, quiz, and game on first boot.
	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
