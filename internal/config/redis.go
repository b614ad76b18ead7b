package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server used for rate limiting, response
// caching and the cross-instance accept lock.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
	Disabled bool   `env:"REDIS_DISABLED" envDefault:"false"`
}

// Address prefers REDIS_HOST/REDIS_PORT over REDIS_ADDR when both are set.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient connects using REDIS_* variables. It returns nil when
// Redis is disabled or unreachable; callers degrade by skipping the
// features that need it.
func NewRedisClient() *redis.Client {
	var c RedisConfig
	if err := ParseEnv(&c); err != nil {
		log.Warnf("redis config: %v", err)
		return nil
	}
	if c.Disabled {
		return nil
	}
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("redis unavailable at %s, continuing without it: %v", c.Address(), err)
		_ = client.Close()
		return nil
	}
	return client
}
