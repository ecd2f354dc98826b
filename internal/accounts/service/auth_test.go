package service

import (
	"context"
	"testing"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, jwtx.Verifier) {
	t.Helper()

	signer, err := jwtx.GenerateEdDSASigner()
	require.NoError(t, err)

	svc := &AuthService{
		Signer:     signer,
		Issuer:     "https://accounts.test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	return svc, jwtx.NewVerifierEdDSA(signer.Public(), svc.Issuer)
}

func registerUser(t *testing.T, tenant domain.Tenant, ts store.TenantStore, email string) domain.User {
	t.Helper()

	u, err := (&IdentityService{}).Register(context.Background(), tenant, ts, RegisterParams{
		Email:    email,
		Password: "hunter2hunter2",
		FullName: "Test User",
	})
	require.NoError(t, err)
	return u
}

func TestLogin(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	auth, verifier := newAuthService(t)
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Login Co", "login.example.com")
	registerUser(t, tenant, ts, "alice@example.com")

	t.Run("valid credentials issue both tokens", func(t *testing.T) {
		user, pair, err := auth.Login(ctx, tenant, ts, "Alice@Example.com", "hunter2hunter2")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", user.Email)
		require.NotNil(t, user.LastLogin)
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, int64(60), pair.ExpiresIn)
		require.NotEmpty(t, pair.RefreshToken)

		claims, err := verifier.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
		require.Equal(t, tenant.ID, claims.TenantID)
		require.Equal(t, "alice@example.com", claims.Email)
		require.Equal(t, "Test User", claims.FullName)
		require.False(t, claims.Staff)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, _, err := auth.Login(ctx, tenant, ts, "nobody@example.com", "hunter2hunter2")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = auth.Login(ctx, tenant, ts, "alice@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("malformed email is a credential failure", func(t *testing.T) {
		_, _, err := auth.Login(ctx, tenant, ts, "not-an-email", "hunter2hunter2")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account with valid credentials", func(t *testing.T) {
		u := registerUser(t, tenant, ts, "inactive@example.com")
		require.NoError(t, (&IdentityService{}).Deactivate(ctx, ts, u.ID))

		_, _, err := auth.Login(ctx, tenant, ts, "inactive@example.com", "hunter2hunter2")
		require.ErrorIs(t, err, ErrInactiveAccount)

		// A wrong password on the same account must not reveal it exists.
		_, _, err = auth.Login(ctx, tenant, ts, "inactive@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	auth, verifier := newAuthService(t)
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Refresh Co", "refresh.example.com")
	user := registerUser(t, tenant, ts, "bob@example.com")

	_, pair, err := auth.Login(ctx, tenant, ts, "bob@example.com", "hunter2hunter2")
	require.NoError(t, err)

	t.Run("rotation replaces the token", func(t *testing.T) {
		got, next, err := auth.Refresh(ctx, tenant, ts, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		claims, err := verifier.Verify(next.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)

		// The consumed token is gone.
		_, _, err = auth.Refresh(ctx, tenant, ts, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)

		pair = next
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := auth.Refresh(ctx, tenant, ts, "nonsense")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("expired token is rejected and purged", func(t *testing.T) {
		expired := &AuthService{
			Signer:     auth.Signer,
			Issuer:     auth.Issuer,
			AccessTTL:  time.Minute,
			RefreshTTL: -time.Minute,
		}
		_, stale, err := expired.Login(ctx, tenant, ts, "bob@example.com", "hunter2hunter2")
		require.NoError(t, err)

		_, _, err = auth.Refresh(ctx, tenant, ts, stale.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		require.NoError(t, (&IdentityService{}).Deactivate(ctx, ts, user.ID))

		_, _, err := auth.Refresh(ctx, tenant, ts, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestTokenTTLDefaults(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	signer, err := jwtx.GenerateEdDSASigner()
	require.NoError(t, err)

	tenant, ts := provisionTenant(t, st, "TTL Co", "ttl.example.com")
	registerUser(t, tenant, ts, "eve@example.com")
	ctx := context.Background()

	t.Run("zero TTLs fall back to the defaults", func(t *testing.T) {
		auth := &AuthService{Signer: signer, Issuer: "https://accounts.test"}
		_, pair, err := auth.Login(ctx, tenant, ts, "eve@example.com", "hunter2hunter2")
		require.NoError(t, err)
		require.Equal(t, int64(jwtx.DefaultAccessTokenTTL.Seconds()), pair.ExpiresIn)
	})

	t.Run("negative refresh TTL mints an already-expired token", func(t *testing.T) {
		auth := &AuthService{
			Signer:     signer,
			Issuer:     "https://accounts.test",
			AccessTTL:  time.Minute,
			RefreshTTL: -time.Minute,
		}
		_, pair, err := auth.Login(ctx, tenant, ts, "eve@example.com", "hunter2hunter2")
		require.NoError(t, err)

		_, _, err = auth.Refresh(ctx, tenant, ts, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestDeactivateDropsSessions(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	auth, _ := newAuthService(t)
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Sessions Co", "sessions.example.com")
	user := registerUser(t, tenant, ts, "carol@example.com")

	_, pair, err := auth.Login(ctx, tenant, ts, "carol@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, (&IdentityService{}).Deactivate(ctx, ts, user.ID))

	// Reactivation does not resurrect the dropped session.
	require.NoError(t, (&IdentityService{}).Reactivate(ctx, ts, user.ID))
	_, _, err = auth.Refresh(ctx, tenant, ts, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	auth, _ := newAuthService(t)
	ctx := context.Background()

	tenant, ts := provisionTenant(t, st, "Sweep Co", "sweep.example.com")
	registerUser(t, tenant, ts, "dave@example.com")

	expired := &AuthService{
		Signer:     auth.Signer,
		Issuer:     auth.Issuer,
		AccessTTL:  time.Minute,
		RefreshTTL: -time.Minute,
	}
	_, stale, err := expired.Login(ctx, tenant, ts, "dave@example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, live, err := auth.Login(ctx, tenant, ts, "dave@example.com", "hunter2hunter2")
	require.NoError(t, err)

	hk := NewHousekeepingService(st, testLogger(), 0)
	hk.Sweep(ctx)

	_, _, err = auth.Refresh(ctx, tenant, ts, stale.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, _, err = auth.Refresh(ctx, tenant, ts, live.RefreshToken)
	require.NoError(t, err)
}
