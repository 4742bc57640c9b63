package main

import (
	"github.com/voidshard/b2b/pkg/database"
)

const (
	docMigrate = `Apply (or with --down, revert) database migrations`
)

type optsMigrate struct {
	optsGeneral
	optsDatabase

	Down bool `long:"down" description:"Revert all migrations"`
}

func (c *optsMigrate) Execute(args []string) error {
	log := newLogger(c.Debug)
	defer log.Sync()

	if c.Down {
		log.Warn("reverting all migrations")
		return database.MigrateDown(c.options())
	}
	err := database.Migrate(c.options())
	if err == nil {
		log.Info("database migrated")
	}
	return err
}
