package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies pending migrations on a dedicated connection so the
// driver's Close does not take the application pool with it.
func RunMigrations(dbPath string) error {
	_, err := migrateUp(dbPath)
	return err
}

// SchemaVersion reports the applied migration version.
func SchemaVersion(dbPath string) (uint, bool, error) {
	m, closeDB, err := newMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer closeDB()
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func migrateUp(dbPath string) (bool, error) {
	m, closeDB, err := newMigrator(dbPath)
	if err != nil {
		return false, err
	}
	defer closeDB()
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("apply migrations: %w", err)
	}
	return true, nil
}

func newMigrator(dbPath string) (*migrate.Migrate, func(), error) {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open migration database: %w", err)
	}
	closeDB := func() { migrateDB.Close() }

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, closeDB, nil
}
