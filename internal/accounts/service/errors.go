package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity reports that an email, tenant name or domain
	// host is already taken.
	ErrDuplicateIdentity = errors.New("duplicate_identity")

	// ErrInvalidCredentials is the generic login rejection. It covers
	// both unknown emails and wrong passwords so callers cannot
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInactiveAccount means the credentials verified but the account
	// is soft-disabled.
	ErrInactiveAccount = errors.New("inactive_account")

	// ErrInvalidRefresh means the refresh token is unknown or expired.
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	// ErrTenantInactive means the resolved tenant is deactivated.
	ErrTenantInactive = errors.New("tenant_inactive")

	// ErrTenantFull means the tenant hit its max_users ceiling.
	ErrTenantFull = errors.New("tenant_full")
)

// ValidationError rejects a malformed or missing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
