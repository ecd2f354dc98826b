package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/internal/accounts/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a sqlite catalog in a scratch directory with
// migrations applied.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// provisionTenant creates a tenant through the service, so tests
// exercise the same path production does.
func provisionTenant(t *testing.T, st store.Store, name, host string) (domain.Tenant, store.TenantStore) {
	t.Helper()

	svc := &TenantService{Store: st}
	tenant, err := svc.Provision(context.Background(), ProvisionParams{
		Name:        name,
		PrimaryHost: host,
	})
	require.NoError(t, err)

	ts, err := st.OpenTenant(context.Background(), tenant)
	require.NoError(t, err)
	return tenant, ts
}
