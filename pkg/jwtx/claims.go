// Package jwtx builds and verifies the JWT access tokens the accounts
// service issues after a successful login.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens are short-lived; refresh tokens are
// opaque and stored server-side, so they may live longer.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims. Changes must stay additive so
// already-issued tokens keep verifying.
type Claims struct {
	jwt.RegisteredClaims

	// TenantID scopes the token to one tenant's schema.
	TenantID string `json:"tid,omitempty"`

	// Email is the login identifier of the authenticated user.
	Email string `json:"email,omitempty"`

	// FullName is the display name, if the user set one.
	FullName string `json:"name,omitempty"`

	// Staff marks administrative accounts.
	Staff bool `json:"staff,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for a user bound to a
// tenant.
func NewAccessClaims(
	subject, tenantID, email, fullName string,
	staff bool,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TenantID: tenantID,
		Email:    email,
		FullName: fullName,
		Staff:    staff,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer claim against the expected value.
// An empty expected issuer skips the check.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return errors.New("jwtx: issuer mismatch")
	}
	return nil
}

// ValidateExpiry checks exp and nbf against the current time.
func (c *Claims) ValidateExpiry() error {
	now := time.Now()
	if c.ExpiresAt == nil || now.After(c.ExpiresAt.Time) {
		return errors.New("jwtx: token expired")
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return errors.New("jwtx: token not yet valid")
	}
	return nil
}
