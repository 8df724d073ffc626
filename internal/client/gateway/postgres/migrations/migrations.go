// Package migrations embeds the backend schema with its row-level security
// policies.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
