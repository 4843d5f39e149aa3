package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every registered schema migration, ordered by name.
var Migrations = migrate.NewMigrations()
