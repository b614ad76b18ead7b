package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != DriverSQLite {
		t.Fatalf("storage driver = %q, want %q", cfg.StorageDriver, DriverSQLite)
	}
	if cfg.AccessTTLMin != 15 || cfg.RefreshTTLDays != 7 {
		t.Fatalf("ttl = %d min / %d days, want 15 / 7", cfg.AccessTTLMin, cfg.RefreshTTLDays)
	}
	if cfg.AcceptLockTTL != 10*time.Second {
		t.Fatalf("accept lock ttl = %v, want 10s", cfg.AcceptLockTTL)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing JWT_SECRET error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "json ok", cfg: Config{StorageDriver: "JSON", JWTSecret: "k", JSONDataDir: "data", AccessTTLMin: 1, RefreshTTLDays: 1}},
		{name: "mysql without user", cfg: Config{StorageDriver: "mysql", JWTSecret: "k", DBName: "m", AccessTTLMin: 1, RefreshTTLDays: 1}, wantErr: "DB_USER"},
		{name: "unknown driver", cfg: Config{StorageDriver: "mongo", JWTSecret: "k", AccessTTLMin: 1, RefreshTTLDays: 1}, wantErr: "unknown STORAGE_DRIVER"},
		{name: "bad ttl", cfg: Config{StorageDriver: "sqlite", JWTSecret: "k", SQLitePath: "x.db", RefreshTTLDays: 1}, wantErr: "ACCESS_TOKEN_TTL_MIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Methods["POST"] {
		t.Fatalf("methods = %v", c.Methods)
	}
	if c.TTL != time.Minute {
		t.Fatalf("ttl = %v, want 1m", c.TTL)
	}
}

func TestLoadCacheConfigFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	c := LoadCacheConfig()
	if c.TTL != 30*time.Second || !c.Methods["GET"] {
		t.Fatalf("cache config = %+v", c)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", c.Capacity)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl = %v, want 10s", c.TTL)
	}
}

func TestRedisAddress(t *testing.T) {
	c := RedisConfig{Addr: "cache:6379"}
	if c.Address() != "cache:6379" {
		t.Fatalf("address = %q", c.Address())
	}
	c.Host, c.Port = "redis", "6380"
	if c.Address() != "redis:6380" {
		t.Fatalf("address = %q", c.Address())
	}
}
