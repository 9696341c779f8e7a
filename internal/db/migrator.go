package db

import (
	"embed"
	"fmt"

	"jellybridge/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// The path is relative to THIS file's directory (internal/db). Match up and
// down files explicitly to avoid "no matching files" during go:embed.
//
//go:embed migrations/*.up.sql migrations/*.down.sql
var migrationsFS embed.FS

// MigrateUp runs all "up" migrations bundled via go:embed. databaseURL is a
// migrate-style URL, e.g. "sqlite:///var/lib/jellybridge/jellybridge.db".
func MigrateUp(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("migrator: empty database URL")
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrator: iofs init: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migrator: create: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrator: up: %w", err)
	}

	if v, dirty, err := m.Version(); err == nil {
		logging.Info("DB migration version", "version", v, "dirty", dirty)
	}
	return nil
}
