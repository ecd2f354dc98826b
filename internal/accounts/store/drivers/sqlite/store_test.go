package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testTenant(name, schema string) domain.Tenant {
	now := time.Now().UTC()
	return domain.Tenant{
		ID:        "tenant-" + schema,
		Name:      name,
		Schema:    schema,
		Plan:      domain.PlanBasic,
		MaxUsers:  domain.DefaultMaxUsers,
		IsActive:  true,
		CreatedOn: now,
		UpdatedOn: now,
	}
}

func TestConstraintMapping(t *testing.T) {
	t.Parallel()

	st := newCatalog(t)
	ctx := context.Background()

	tenant := testTenant("Acme", "acme")
	require.NoError(t, st.Tenants().CreateTenant(ctx, tenant))

	t.Run("unique violation maps to ErrAlreadyExists", func(t *testing.T) {
		dup := testTenant("Acme", "acme_dup")
		dup.ID = "tenant-other"
		require.ErrorIs(t, st.Tenants().CreateTenant(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("foreign key violation does not", func(t *testing.T) {
		err := st.Domains().CreateDomain(ctx, domain.Domain{
			ID:        "dom-orphan",
			TenantID:  "no-such-tenant",
			Host:      "orphan.example.com",
			CreatedAt: time.Now().UTC(),
		})
		require.Error(t, err)
		require.NotErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("check violation does not", func(t *testing.T) {
		bad := testTenant("Bad Plan", "bad_plan")
		bad.Plan = "platinum"
		err := st.Tenants().CreateTenant(ctx, bad)
		require.Error(t, err)
		require.NotErrorIs(t, err, store.ErrAlreadyExists)
	})
}
