// Package migrations embeds the catalog schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
