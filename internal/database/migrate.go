package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/allisson/scanrelay/migrations"
)

// MigrationsDir returns the embedded migrations directory for a driver.
func MigrationsDir(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite", nil
	case DriverPostgres:
		return "postgresql", nil
	case DriverMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// NewMigrate builds a migrate instance bound to an open connection and the
// embedded migration files. Closing the returned instance closes db.
func NewMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	dir, err := MigrationsDir(driver)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var instance migratedb.Driver
	switch driver {
	case DriverSQLite:
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	case DriverPostgres:
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverMySQL:
		instance, err = mysql.WithInstance(db, &mysql.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Migrate applies all pending migrations to db. It does not close db.
func Migrate(db *sql.DB, driver string) error {
	m, err := NewMigrate(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
