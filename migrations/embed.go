// Package migrations embeds the goose SQL migrations for the scheduling schema.
// The statements stay within the subset shared by PostgreSQL and SQLite.
package migrations

import "embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
