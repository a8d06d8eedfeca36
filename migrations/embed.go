// Package migrations embeds the SQLite document store schema so the sqlite
// driver can create its tables from a bare binary.
package migrations

import "embed"

// FS holds the forward migrations, YYYYMMDD_HHMMSS_name.up.sql, at its root.
//
//go:embed *.up.sql
var FS embed.FS
