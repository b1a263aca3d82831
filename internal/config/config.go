// Package config reads process configuration from the environment once at
// start-up. There is no reload.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port string `env:"PORT"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresURL   string `env:"POSTGRES_URL"`
	MongoURL      string `env:"MONGO_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"food_order_tracking"`

	RedisURL     string        `env:"REDIS_URL"`
	MenuCacheTTL time.Duration `env:"MENU_CACHE_TTL" envDefault:"1m"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// An empty origin list lets any origin through, same as "*".
	CORSOrigins      []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	OrdersServiceURL string   `env:"ORDERS_SERVICE_URL"`
	MenuServiceURL   string   `env:"MENU_SERVICE_URL"`
	CreateRateLimit  float64  `env:"CREATE_RATE_LIMIT" envDefault:"5"`
	CreateRateBurst  int      `env:"CREATE_RATE_BURST" envDefault:"10"`

	LifecycleTimeUnit time.Duration `env:"LIFECYCLE_TIME_UNIT"`

	MenuFile       string `env:"MENU_FILE" envDefault:"menu.yaml"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
}

// Load reads the environment. defaultPort applies when PORT is unset.
func Load(defaultPort string) (*Config, error) {
	cfg := &Config{
		Port:              defaultPort,
		LifecycleTimeUnit: domain.DefaultTimeUnit,
	}

	var errs []error
	if err := env.Parse(cfg); err != nil {
		errs = append(errs, err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.KafkaBrokers = trimList(cfg.KafkaBrokers)
	cfg.CORSOrigins = trimList(cfg.CORSOrigins)
	cfg.OrdersServiceURL = strings.TrimRight(cfg.OrdersServiceURL, "/")
	cfg.MenuServiceURL = strings.TrimRight(cfg.MenuServiceURL, "/")
	if cfg.MenuServiceURL == "" {
		cfg.MenuServiceURL = cfg.OrdersServiceURL
	}

	if cfg.MenuCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("MENU_CACHE_TTL: must be positive, got %s", cfg.MenuCacheTTL))
	}
	if cfg.LifecycleTimeUnit <= 0 {
		errs = append(errs, fmt.Errorf("LIFECYCLE_TIME_UNIT: must be positive, got %s", cfg.LifecycleTimeUnit))
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unsupported driver %q", cfg.StoreDriver))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireStore reports a missing connection string for the selected driver.
func (c *Config) RequireStore() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURL == "" {
			return errors.New("MONGO_URL environment variable is required")
		}
	default:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL environment variable is required")
		}
	}
	return nil
}

func trimList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
