package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	t.Run("lowercases and trims", func(t *testing.T) {
		email, err := NormalizeEmail("  Alice@Example.COM ")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", email)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"", "not-an-email", "a@b@c", "Alice <alice@example.com>"} {
			_, err := NormalizeEmail(in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "input %q", in)
		}
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := &IdentityService{}
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Register Co", "register.example.com")

	t.Run("creates an active non-staff user", func(t *testing.T) {
		u, err := svc.Register(ctx, tenant, ts, RegisterParams{
			Email:    "Alice@Example.com",
			Password: "hunter2hunter2",
			FullName: "  Alice Liddell ",
		})
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", u.Email)
		require.Equal(t, "Alice Liddell", u.FullName)
		require.True(t, u.IsActive)
		require.False(t, u.IsStaff)
		require.Nil(t, u.LastLogin)
		require.NotEqual(t, "hunter2hunter2", u.PasswordHash)
	})

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		_, err := svc.Register(ctx, tenant, ts, RegisterParams{
			Email:    "ALICE@example.com",
			Password: "hunter2hunter2",
		})
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, err := svc.Register(ctx, tenant, ts, RegisterParams{
			Email:    "short@example.com",
			Password: "short",
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "password", verr.Field)
	})

	t.Run("staff flag", func(t *testing.T) {
		u, err := svc.RegisterStaff(ctx, tenant, ts, RegisterParams{
			Email:    "admin@example.com",
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)
		require.True(t, u.IsStaff)
		require.True(t, u.IsActive)
	})
}

func TestRegisterSeatCeiling(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	tenants := &TenantService{Store: st}
	svc := &IdentityService{}
	ctx := context.Background()

	tenant, err := tenants.Provision(ctx, ProvisionParams{
		Name:        "Tiny Co",
		MaxUsers:    2,
		PrimaryHost: "tiny.example.com",
	})
	require.NoError(t, err)

	ts, err := st.OpenTenant(ctx, tenant)
	require.NoError(t, err)

	for _, email := range []string{"one@example.com", "two@example.com"} {
		_, err := svc.Register(ctx, tenant, ts, RegisterParams{
			Email:    email,
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)
	}

	_, err = svc.Register(ctx, tenant, ts, RegisterParams{
		Email:    "three@example.com",
		Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, ErrTenantFull)
}

func TestUserLifecycle(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	svc := &IdentityService{}
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Lifecycle Co", "lifecycle.example.com")

	u, err := svc.Register(ctx, tenant, ts, RegisterParams{
		Email:    "bob@example.com",
		Password: "hunter2hunter2",
		FullName: "Bob Builder",
	})
	require.NoError(t, err)

	t.Run("update full name", func(t *testing.T) {
		require.NoError(t, svc.UpdateFullName(ctx, ts, u.ID, " Robert Builder "))
		got, err := svc.GetUser(ctx, ts, u.ID)
		require.NoError(t, err)
		require.Equal(t, "Robert Builder", got.FullName)
	})

	t.Run("set password enforces the floor", func(t *testing.T) {
		var verr *ValidationError
		require.ErrorAs(t, svc.SetPassword(ctx, ts, u.ID, "short"), &verr)
		require.NoError(t, svc.SetPassword(ctx, ts, u.ID, "correct horse battery"))
	})

	t.Run("deactivate and reactivate are idempotent", func(t *testing.T) {
		require.NoError(t, svc.Deactivate(ctx, ts, u.ID))
		require.NoError(t, svc.Deactivate(ctx, ts, u.ID))

		got, err := svc.GetUser(ctx, ts, u.ID)
		require.NoError(t, err)
		require.False(t, got.IsActive)

		require.NoError(t, svc.Reactivate(ctx, ts, u.ID))
		got, err = svc.GetUser(ctx, ts, u.ID)
		require.NoError(t, err)
		require.True(t, got.IsActive)
	})

	t.Run("list newest first", func(t *testing.T) {
		_, err := svc.Register(ctx, tenant, ts, RegisterParams{
			Email:    "carol@example.com",
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)

		users, err := svc.ListUsers(ctx, ts)
		require.NoError(t, err)
		require.Len(t, users, 2)
		require.Equal(t, "carol@example.com", users[0].Email)
	})
}
