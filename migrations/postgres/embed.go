// Package migrations embebe los archivos SQL de migración.
package migrations

import "embed"

// FS contiene las migraciones de PostgreSQL (*_up.sql / *_down.sql).
//
//go:embed *.sql
var FS embed.FS
