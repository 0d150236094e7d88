// Package migrations embeds the schema applied by database.RunMigrations.
package migrations

import "embed"

// FS holds the *.up.sql files.
//
//go:embed *.sql
var FS embed.FS
