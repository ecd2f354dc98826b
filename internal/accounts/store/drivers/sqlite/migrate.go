package sqlite

import (
	"database/sql"
	"errors"

	"github.com/canopysaas/canopy/internal/accounts/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	catalogMigrationsDir = migrations.CatalogDir
	tenantMigrationsDir  = migrations.TenantDir
)

// ApplyMigrations brings the catalog database up to date using the
// embedded migration files. Tenant databases are migrated when they are
// created or first opened, not here.
func (s *Store) ApplyMigrations() error {
	return applyMigrations(s.db, catalogMigrationsDir)
}

func applyMigrations(db *sql.DB, dir string) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, dir)
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
