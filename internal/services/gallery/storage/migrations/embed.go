// Package migrations holds the poster schema shared by the local and remote
// relational stores.
package migrations

import "embed"

// FS contains embedded SQLite-dialect migrations for poster storage.
//
//go:embed *.sql
var FS embed.FS
