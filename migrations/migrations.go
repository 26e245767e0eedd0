// Package migrations embeds the buffer store schema for every supported driver.
package migrations

import "embed"

// FS holds the migration files under sqlite/, postgresql/ and mysql/.
//
//go:embed sqlite/*.sql postgresql/*.sql mysql/*.sql
var FS embed.FS
