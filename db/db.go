// Package db embeds the SQL migrations for the Postgres document store.
package db

import "embed"

// Migrations holds the versioned up/down scripts under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
