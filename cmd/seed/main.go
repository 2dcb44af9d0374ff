package main

import (
	"os"

	"github.com/verityapp/verity-server/internal/config"
	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/logger"
)

// Seeds the database with demo profiles and interest edges. Intended for
// local development only.
func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.App.ENV == "production" {
		log.Error("refusing to seed a production database")
		os.Exit(1)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("seeding complete")
}
