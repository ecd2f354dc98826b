package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/cryptox"
	"github.com/canopysaas/canopy/pkg/idx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// MinPasswordLength is the registration password floor.
const MinPasswordLength = 8

// IdentityService owns the user lifecycle inside a tenant schema. The
// tenant handle is passed explicitly into every call; there is no
// ambient tenant state.
type IdentityService struct{}

type RegisterParams struct {
	Email    string
	Password string
	FullName string
}

// Register creates a new active, non-staff user in the tenant's schema.
func (s *IdentityService) Register(
	ctx context.Context,
	tenant domain.Tenant,
	ts store.TenantStore,
	p RegisterParams,
) (domain.User, error) {
	return s.createUser(ctx, tenant, ts, p, false)
}

// RegisterStaff is Register with is_staff forced on. No further
// privileges are implied.
func (s *IdentityService) RegisterStaff(
	ctx context.Context,
	tenant domain.Tenant,
	ts store.TenantStore,
	p RegisterParams,
) (domain.User, error) {
	return s.createUser(ctx, tenant, ts, p, true)
}

func (s *IdentityService) createUser(
	ctx context.Context,
	tenant domain.Tenant,
	ts store.TenantStore,
	p RegisterParams,
	staff bool,
) (domain.User, error) {
	email, err := NormalizeEmail(p.Email)
	if err != nil {
		return domain.User{}, err
	}
	if len(p.Password) < MinPasswordLength {
		return domain.User{}, validationErr("password", "must be at least 8 characters")
	}

	if tenant.MaxUsers > 0 {
		count, err := ts.Users().CountUsers(ctx)
		if err != nil {
			return domain.User{}, err
		}
		if count >= tenant.MaxUsers {
			return domain.User{}, ErrTenantFull
		}
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(p.FullName),
		PasswordHash: hash,
		IsStaff:      staff,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}

	if err := ts.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateIdentity
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered",
		"tenant", tenant.Name, "user_id", u.ID, "staff", staff)
	return u, nil
}

// GetUser fetches a user by id.
func (s *IdentityService) GetUser(ctx context.Context, ts store.TenantStore, userID string) (domain.User, error) {
	return ts.Users().GetUserByID(ctx, userID)
}

// ListUsers returns the tenant's users newest first.
func (s *IdentityService) ListUsers(ctx context.Context, ts store.TenantStore) ([]domain.User, error) {
	return ts.Users().ListUsers(ctx)
}

// UpdateFullName mutates the display name.
func (s *IdentityService) UpdateFullName(ctx context.Context, ts store.TenantStore, userID, fullName string) error {
	return ts.Users().UpdateFullName(ctx, userID, strings.TrimSpace(fullName))
}

// SetPassword replaces a user's credential. The same length floor as
// registration applies.
func (s *IdentityService) SetPassword(ctx context.Context, ts store.TenantStore, userID, password string) error {
	if len(password) < MinPasswordLength {
		return validationErr("password", "must be at least 8 characters")
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	return ts.Users().UpdatePasswordHash(ctx, userID, hash)
}

// Deactivate soft-disables a user and drops their refresh tokens so
// open sessions cannot be extended. Idempotent.
func (s *IdentityService) Deactivate(ctx context.Context, ts store.TenantStore, userID string) error {
	return ts.WithTx(ctx, func(tx store.TenantTx) error {
		if err := tx.Users().SetUserActive(ctx, userID, false); err != nil {
			return err
		}
		return tx.RefreshTokens().DeleteUserRefreshTokens(ctx, userID)
	})
}

// Reactivate re-enables a soft-disabled user. Idempotent.
func (s *IdentityService) Reactivate(ctx context.Context, ts store.TenantStore, userID string) error {
	return ts.Users().SetUserActive(ctx, userID, true)
}

// NormalizeEmail lower-cases and validates an email address, returning
// a ValidationError for anything net/mail will not accept as a bare
// address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validationErr("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationErr("email", "is not a valid address")
	}
	return email, nil
}
