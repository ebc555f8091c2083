// Package migrations embeds the versioned schema for the SQL backends.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
