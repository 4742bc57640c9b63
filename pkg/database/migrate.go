package database

import (
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/voidshard/b2b/pkg/database/migrations"
)

// Migrate brings the database schema up to date with the embedded migrations.
// It's safe to call against an already migrated database.
func Migrate(opts *Options) error {
	m, err := newMigrate(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// MigrateDown reverts every migration.
func MigrateDown(opts *Options) error {
	m, err := newMigrate(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func newMigrate(opts *Options) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, toMigrateURL(opts.resolvedURL()))
}

// toMigrateURL swaps the postgres scheme for the one the migrate pgx/v5 driver registers.
func toMigrateURL(u string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(u, scheme) {
			return "pgx5://" + strings.TrimPrefix(u, scheme)
		}
	}
	return u
}
