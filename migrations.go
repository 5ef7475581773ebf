package imobcrm

import "embed"

// MigrationsFS carries the goose migrations so both binaries can apply them
// without a filesystem dependency.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
