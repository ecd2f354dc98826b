// Package migrations embeds the versioned SQL for the catalog database
// and for each tenant database so the binary is self-migrating.
package migrations

import "embed"

//go:embed catalog/*.sql tenant/*.sql
var Migrations embed.FS

const (
	// CatalogDir is the iofs path for catalog migrations.
	CatalogDir = "catalog"
	// TenantDir is the iofs path for per-tenant migrations.
	TenantDir = "tenant"
)
