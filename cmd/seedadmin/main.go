// Command seedadmin makes sure the admin account named by SEED_ADMIN_EMAIL
// exists in the configured store. Flags override the environment.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/config"
	"github.com/duongquang05/marathon-portal/internal/service"
	"github.com/duongquang05/marathon-portal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	email := flag.String("email", cfg.SeedAdminEmail, "admin email")
	password := flag.String("password", cfg.SeedAdminPassword, "admin password (min 6 chars)")
	name := flag.String("name", cfg.SeedAdminName, "admin full name")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	u, created, err := service.NewParticipantService(stores, cfg.BcryptCost).EnsureAdmin(ctx, *email, *password, *name)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Infof("created admin %s (id=%d)", u.Email, u.ID)
	} else {
		log.Infof("admin %s already present (id=%d)", u.Email, u.ID)
	}
}
