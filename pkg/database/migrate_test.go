package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voidshard/b2b/pkg/database/migrations"
)

func TestToMigrateURL(t *testing.T) {
	cases := []struct {
		Name   string
		Given  string
		Expect string
	}{
		{"Postgres", "postgres://u:p@localhost:5432/b2b", "pgx5://u:p@localhost:5432/b2b"},
		{"Postgresql", "postgresql://localhost/b2b?sslmode=disable", "pgx5://localhost/b2b?sslmode=disable"},
		{"AlreadyPgx", "pgx5://localhost/b2b", "pgx5://localhost/b2b"},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, c.Expect, toMigrateURL(c.Given))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.Files, "*.up.sql")

	assert.Nil(t, err)
	assert.Equal(t, []string{"000001_job_metadata.up.sql", "000002_file_version.up.sql", "000003_one_open_execution.up.sql"}, names)
}
