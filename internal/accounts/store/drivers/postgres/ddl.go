package postgres

import "fmt"

const catalogDDL = `
CREATE SCHEMA IF NOT EXISTS canopy_catalog;

CREATE TABLE IF NOT EXISTS canopy_catalog.tenants (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    schema_name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    plan        TEXT NOT NULL DEFAULT 'basic'
                CHECK (plan IN ('basic', 'premium', 'enterprise')),
    max_users   INTEGER NOT NULL DEFAULT 10,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_on  TIMESTAMPTZ NOT NULL,
    updated_on  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS canopy_catalog.domains (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL REFERENCES canopy_catalog.tenants (id) ON DELETE CASCADE,
    host       TEXT NOT NULL UNIQUE,
    is_primary BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_domains_tenant_id
    ON canopy_catalog.domains (tenant_id);
`

// tenantDDL returns the table layout for one tenant schema. The schema
// name is validated before it reaches here.
func tenantDDL(schema string) string {
	q := quoteIdent(schema)
	return fmt.Sprintf(`
CREATE TABLE %[1]s.users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    full_name     TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    date_joined   TIMESTAMPTZ NOT NULL,
    last_login    TIMESTAMPTZ
);

CREATE TABLE %[1]s.refresh_tokens (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES %[1]s.users (id) ON DELETE CASCADE,
    token_hash TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX ON %[1]s.refresh_tokens (user_id);
CREATE INDEX ON %[1]s.refresh_tokens (expires_at);
`, q)
}
