// internal/database/seeder.go
package database

import (
	"context"

	"delivery-fleet-api-server/config"
	"delivery-fleet-api-server/internal/admin"
	"delivery-fleet-api-server/internal/logger"
)

// SeedAdmin makes sure the bootstrap admin from the config exists so a fresh
// deployment can log into the back office. Without seed credentials it does nothing.
func SeedAdmin(ctx context.Context, admins *admin.Service, cfg config.AdminConfig, log logger.Logger) error {
	if cfg.SeedLogin == "" || cfg.SeedPassword == "" {
		log.Debug("admin seed credentials not set, seeding skipped")
		return nil
	}

	created, err := admins.EnsureAdmin(ctx, cfg.SeedLogin, cfg.SeedPassword)
	if err != nil {
		return err
	}
	if !created {
		log.Info("bootstrap admin already exists, seeding skipped", logger.String("login", cfg.SeedLogin))
		return nil
	}

	log.Info("bootstrap admin seeded", logger.String("login", cfg.SeedLogin))
	return nil
}
