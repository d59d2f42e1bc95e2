package repository

import "embed"

// Migrations SQL миграции каталога портов
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir каталог миграций внутри Migrations
const MigrationsDir = "migrations"
