package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/cryptox"
	"github.com/canopysaas/canopy/pkg/idx"
	"github.com/canopysaas/canopy/pkg/jwtx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// AuthService verifies credentials against a tenant's identity store
// and issues access/refresh token pairs.
type AuthService struct {
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// Login verifies (email, password) against the tenant's user set. The
// failure mode never reveals whether the email exists; only accounts
// that verified their credentials learn they are deactivated.
func (s *AuthService) Login(
	ctx context.Context,
	tenant domain.Tenant,
	ts store.TenantStore,
	email, password string,
) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	user, err := ts.Users().GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same argon2 work as a real verify so response
			// timing does not reveal whether the email exists.
			_ = cryptox.VerifyPassword(password, s.dummy())
			log.Info("login rejected", "tenant", tenant.Name, "reason", "unknown_email")
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login rejected", "tenant", tenant.Name, "reason", "bad_password")
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Info("login rejected", "tenant", tenant.Name, "reason", "inactive")
		return domain.User{}, domain.TokenPair{}, ErrInactiveAccount
	}

	now := time.Now().UTC()
	if err := ts.Users().UpdateLastLogin(ctx, user.ID); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.LastLogin = &now

	pair, err := s.issueTokens(ctx, tenant, ts.RefreshTokens(), user, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	log.Info("login succeeded", "tenant", tenant.Name, "user_id", user.ID)
	return user, pair, nil
}

// Refresh rotates an opaque refresh token: the consumed record is
// deleted and a replacement issued in the same transaction, so a token
// can only ever be redeemed once.
func (s *AuthService) Refresh(
	ctx context.Context,
	tenant domain.Tenant,
	ts store.TenantStore,
	refreshToken string,
) (domain.User, domain.TokenPair, error) {
	hash := cryptox.FingerprintToken(refreshToken)
	now := time.Now().UTC()

	var user domain.User
	var pair domain.TokenPair

	err := ts.WithTx(ctx, func(tx store.TenantTx) error {
		rec, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if now.After(rec.ExpiresAt) {
			_ = tx.RefreshTokens().DeleteRefreshToken(ctx, rec.ID)
			return ErrInvalidRefresh
		}

		user, err = tx.Users().GetUserByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !user.IsActive {
			return ErrInactiveAccount
		}

		if err := tx.RefreshTokens().DeleteRefreshToken(ctx, rec.ID); err != nil {
			return err
		}

		pair, err = s.issueTokens(ctx, tenant, tx.RefreshTokens(), user, now)
		return err
	})
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	return user, pair, nil
}

// issueTokens mints the JWT access token and a stored opaque refresh
// token for the user.
func (s *AuthService) issueTokens(
	ctx context.Context,
	tenant domain.Tenant,
	tokens store.RefreshTokens,
	user domain.User,
	now time.Time,
) (domain.TokenPair, error) {
	// Only an unset TTL falls back to the default. Negative values are
	// honored so callers can mint already-expired tokens.
	accessTTL := s.AccessTTL
	if accessTTL == 0 {
		accessTTL = jwtx.DefaultAccessTokenTTL
	}
	refreshTTL := s.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	claims := jwtx.NewAccessClaims(
		user.ID, tenant.ID,
		user.Email, user.FullName,
		user.IsStaff,
		s.Issuer,
		accessTTL,
		now,
	)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = tokens.CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: now.Add(refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash = cryptox.DummyHash()
	})
	return s.dummyHash
}
