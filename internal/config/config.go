// Package config содержит логику чтения конфигурации сервиса витрины.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса витрины.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	BackendAddress string        `env:"BACKEND_ADDRESS"`
	BackendToken   string        `env:"BACKEND_TOKEN"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	CacheTTL       time.Duration `env:"CACHE_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envBackendAddress := cfg.BackendAddress
	envBackendToken := cfg.BackendToken
	envSessionSecret := cfg.SessionSecret
	envCacheTTL := cfg.CacheTTL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BackendAddress, "b", "", "storefront backend address")
	flag.StringVar(&cfg.BackendToken, "t", "", "storefront backend API token")
	flag.StringVar(&cfg.SessionSecret, "s", "", "session cookie signing secret")
	flag.DurationVar(&cfg.CacheTTL, "c", 5*time.Minute, "catalog cache TTL")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBackendAddress != "" {
		cfg.BackendAddress = envBackendAddress
	}
	if envBackendToken != "" {
		cfg.BackendToken = envBackendToken
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}
	if envCacheTTL != 0 {
		cfg.CacheTTL = envCacheTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "storefront-secret"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return cfg, nil
}
