// Package migrations holds the embedded SQL schema applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
