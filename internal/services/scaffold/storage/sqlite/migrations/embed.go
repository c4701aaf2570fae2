// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

//go:embed journal/*.sql
var JournalFS embed.FS

//go:embed projections/*.sql
var ProjectionsFS embed.FS
