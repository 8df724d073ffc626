// Package migrations embeds the local SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
