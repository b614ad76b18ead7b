// Package config loads application configuration from the environment,
// after folding in an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Config holds the core runtime settings.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port string `env:"APP_PORT" envDefault:"8080"`

	// StorageDriver picks one backend for every collection.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DBUser        string `env:"DB_USER"`
	DBPass        string `env:"DB_PASS"`
	DBHost        string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort        string `env:"DB_PORT" envDefault:"3306"`
	DBName        string `env:"DB_NAME" envDefault:"marathon"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/marathon.db"`
	JSONDataDir   string `env:"JSON_DATA_DIR" envDefault:"data"`

	JWTSecret      string `env:"JWT_SECRET,required"`
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"15"`
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`

	// AcceptLockTTL bounds how long a cross-instance accept lock may be held.
	AcceptLockTTL time.Duration `env:"ACCEPT_LOCK_TTL" envDefault:"10s"`

	RabbitMQURL string `env:"RABBITMQ_URL"`
	EventLogDir string `env:"EVENT_LOG_DIR" envDefault:"logs"`

	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@marathon.local"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string `env:"SEED_ADMIN_NAME" envDefault:"Administrator"`
}

// Load reads .env (when present) and the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv fills target from environment variables using its env tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseEnvDefaults fills target from its envDefault tags alone, ignoring
// the process environment.
func ParseEnvDefaults(target any) error {
	return env.ParseWithOptions(target, env.Options{Environment: map[string]string{}})
}

// Validate checks cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	var errs []error
	switch c.StorageDriver {
	case DriverMySQL:
		if c.DBUser == "" {
			errs = append(errs, errors.New("DB_USER is required for the mysql driver"))
		}
		if c.DBName == "" {
			errs = append(errs, errors.New("DB_NAME is required for the mysql driver"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverJSON:
		if c.JSONDataDir == "" {
			errs = append(errs, errors.New("JSON_DATA_DIR is required for the json driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q (want mysql, sqlite or json)", c.StorageDriver))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.AccessTTLMin <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if c.RefreshTTLDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	return errors.Join(errs...)
}
