package migrations

import "embed"

// FS contains embedded SQLite migrations for the sheet dataset.
//
//go:embed *.sql
var FS embed.FS
