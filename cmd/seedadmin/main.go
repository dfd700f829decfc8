// Command seedadmin applies the schema and creates the configured admin
// account when none exists. It is safe to run repeatedly.
package main

import (
	"os"
	"time"

	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/db"
	"github.com/geocoder89/farmhub/internal/observability"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	created, err := db.EnsureAdminUser(ctx, pool, cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	if created {
		log.Info("admin account created", "email", cfg.AdminEmail)
		return
	}
	log.Info("admin account already present")
}
