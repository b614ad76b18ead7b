// Package storage opens the backend named by STORAGE_DRIVER.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/config"
	"github.com/duongquang05/marathon-portal/internal/database"
	"github.com/duongquang05/marathon-portal/internal/repository"
	"github.com/duongquang05/marathon-portal/internal/repository/jsonrepo"
	"github.com/duongquang05/marathon-portal/internal/repository/sqlrepo"
)

// Open returns the repositories for cfg.StorageDriver. SQL backends are
// migrated before use. The caller closes the result.
func Open(ctx context.Context, cfg config.Config) (*repository.Stores, error) {
	switch cfg.StorageDriver {
	case config.DriverJSON:
		log.Infof("storage: json files in %s", cfg.JSONDataDir)
		return jsonrepo.Open(cfg.JSONDataDir)

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Infof("storage: sqlite at %s", cfg.SQLitePath)
		return migrated(ctx, db, database.SQLite)

	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		log.Infof("storage: mysql %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
		return migrated(ctx, db, database.MySQL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func migrated(ctx context.Context, db *sql.DB, dialect string) (*repository.Stores, error) {
	if err := database.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	stores, err := sqlrepo.New(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return stores, nil
}
