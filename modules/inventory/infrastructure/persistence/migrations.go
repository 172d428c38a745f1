package persistence

import "embed"

//go:embed migrations/*.sql
var MigrationFiles embed.FS

const MigrationDir = "migrations"
