package main

import (
	"errors"
	"flag"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/db"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
)

// Ручное управление схемой: migrate -cmd up|down|version [-steps N]
func main() {
	cmd := flag.String("cmd", "up", "up, down or version")
	steps := flag.Int("steps", 1, "number of migrations to roll back with -cmd down")
	flag.Parse()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}
	log := logger.New(logger.ParseLevel(cfg.App.LogLevel)).Named("migrate")
	defer log.Sync()

	m, err := db.NewMigrator(cfg.Database.DSN)
	if err != nil {
		log.Fatalw("Failed to init migrator", "error", err)
	}
	defer m.Close()

	switch *cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-*steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatalw("Failed to read schema version", "error", verr)
		}
		log.Infow("Schema version", "version", version, "dirty", dirty)
		return
	default:
		log.Fatalw("Unknown command", "cmd", *cmd)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalw("Migration failed", "cmd", *cmd, "error", err)
	}
	log.Infow("Migration finished", "cmd", *cmd)
}
