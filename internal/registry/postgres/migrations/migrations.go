// Package migrations embeds the registry schema for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
