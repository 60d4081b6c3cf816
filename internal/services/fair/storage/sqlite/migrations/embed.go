package migrations

import "embed"

// FS contains embedded SQLite migrations for the push backlog.
//
//go:embed *.sql
var FS embed.FS
