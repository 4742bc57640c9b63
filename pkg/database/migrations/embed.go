package migrations

import "embed"

// Files contains the SQL migrations in golang-migrate's {version}_{title}.{up|down}.sql form.
//
//go:embed *.sql
var Files embed.FS
