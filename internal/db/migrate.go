package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dhoini/Entitlement-service/migrations"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationURL переводит postgres:// DSN в схему драйвера pgx5://.
func MigrationURL(dsn string) (string, error) {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", fmt.Errorf("unsupported database url for migrations: expected postgres:// scheme")
}

// NewMigrator собирает migrate.Migrate поверх встроенных миграций.
func NewMigrator(dsn string) (*migrate.Migrate, error) {
	url, err := MigrationURL(dsn)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	return m, nil
}

// Migrate применяет все ожидающие миграции.
func Migrate(dsn string, log *logger.Logger) error {
	m, err := NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warnw("Failed to close migration resources", "sourceError", sourceErr, "dbError", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Infow("Database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Infow("Migrations applied", "version", version, "dirty", dirty)
	return nil
}
