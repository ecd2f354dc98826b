package sqlite

import (
	"database/sql"

	"github.com/canopysaas/canopy/internal/accounts/store"
)

// catalogTx scopes the catalog repositories to one transaction.
type catalogTx struct {
	tx *sql.Tx
}

func (t *catalogTx) Tenants() store.Tenants { return &tenantsRepo{db: t.tx} }
func (t *catalogTx) Domains() store.Domains { return &domainsRepo{db: t.tx} }
func (t *catalogTx) Commit() error          { return t.tx.Commit() }
func (t *catalogTx) Rollback() error        { return t.tx.Rollback() }

// tenantTx scopes one tenant's repositories to a transaction.
type tenantTx struct {
	tx *sql.Tx
}

func (t *tenantTx) Users() store.Users                 { return &usersRepo{db: t.tx} }
func (t *tenantTx) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.tx} }
func (t *tenantTx) Commit() error                      { return t.tx.Commit() }
func (t *tenantTx) Rollback() error                    { return t.tx.Rollback() }
