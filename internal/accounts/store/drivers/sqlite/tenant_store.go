package sqlite

import (
	"context"
	"database/sql"

	"github.com/canopysaas/canopy/internal/accounts/store"
)

// tenantStore wraps one tenant's database file.
type tenantStore struct {
	db *sql.DB
}

func (t *tenantStore) Users() store.Users                 { return &usersRepo{db: t.db} }
func (t *tenantStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.db} }

func (t *tenantStore) Tx(ctx context.Context) (store.TenantTx, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &tenantTx{tx: tx}, nil
}

func (t *tenantStore) WithTx(ctx context.Context, fn func(tx store.TenantTx) error) error {
	tx, err := t.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *tenantStore) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close is a no-op: handles are cached by the root Store, which closes
// the underlying database on DropSchema or shutdown.
func (t *tenantStore) Close() error { return nil }
