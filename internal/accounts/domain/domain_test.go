package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserDisplayName(t *testing.T) {
	t.Parallel()

	u := User{Email: "jane@example.com", FullName: "Jane Doe"}
	require.Equal(t, "Jane Doe", u.DisplayName())

	u.FullName = ""
	require.Equal(t, "jane@example.com", u.DisplayName())
}

func TestUserShortName(t *testing.T) {
	t.Parallel()

	t.Run("first token of the full name", func(t *testing.T) {
		u := User{Email: "jane@example.com", FullName: "Jane Doe"}
		require.Equal(t, "Jane", u.ShortName())
	})

	t.Run("single-word names pass through", func(t *testing.T) {
		u := User{Email: "cher@example.com", FullName: "Cher"}
		require.Equal(t, "Cher", u.ShortName())
	})

	t.Run("falls back to email when empty", func(t *testing.T) {
		u := User{Email: "jane@example.com"}
		require.Equal(t, "jane@example.com", u.ShortName())
	})

	t.Run("falls back to email for whitespace-only names", func(t *testing.T) {
		u := User{Email: "jane@example.com", FullName: "   "}
		require.Equal(t, "jane@example.com", u.ShortName())
	})
}

func TestPlanValid(t *testing.T) {
	t.Parallel()

	require.True(t, PlanBasic.Valid())
	require.True(t, PlanPremium.Valid())
	require.True(t, PlanEnterprise.Valid())
	require.False(t, Plan("").Valid())
	require.False(t, Plan("gold").Valid())
}

func TestTenantIsPremium(t *testing.T) {
	t.Parallel()

	require.True(t, Tenant{Plan: PlanPremium}.IsPremium())
	require.False(t, Tenant{Plan: PlanBasic}.IsPremium())
	require.False(t, Tenant{Plan: PlanEnterprise}.IsPremium())
}
