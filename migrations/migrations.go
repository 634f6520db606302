// Package migrations embeds the SQL schema of the iteration journal.
package migrations

import "embed"

// FS holds the golang-migrate up/down files at its root
//
//go:embed *.sql
var FS embed.FS
