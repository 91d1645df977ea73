// Package migrations holds the goose SQL migrations for the pattern store.
package migrations

import "embed"

// FS contains every *.sql migration, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
