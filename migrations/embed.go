// Package migrations embeds the goose SQL migrations applied by the API and
// the admin CLI.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
