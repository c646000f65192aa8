// Package db embeds the sql migrations and seed files applied at startup and
// by clubctl migrate.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed seed/*.*
var SeedFiles embed.FS
