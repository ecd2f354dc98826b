// Package store defines the data access contract for the accounts
// service. The catalog Store owns tenants and their domain bindings;
// a TenantStore is a handle scoped to one tenant's isolated schema.
package store

import (
	"context"
	"errors"

	"github.com/canopysaas/canopy/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the catalog data access interface. Concrete drivers (sqlite,
// postgres) implement it. Uniqueness (tenant name, domain host, user
// email) is enforced by database constraints and surfaced as
// ErrAlreadyExists, never retried here.
type Store interface {
	Tenants() Tenants
	Domains() Domains

	// CreateSchema provisions the isolated storage namespace for a
	// tenant, including its table layout. Must be called before any
	// OpenTenant for that tenant.
	CreateSchema(ctx context.Context, t domain.Tenant) error

	// DropSchema destroys the tenant's namespace and all data in it.
	DropSchema(ctx context.Context, t domain.Tenant) error

	// OpenTenant returns a handle scoped to the tenant's schema.
	OpenTenant(ctx context.Context, t domain.Tenant) (TenantStore, error)

	// ApplyMigrations brings the catalog tables up to date.
	ApplyMigrations() error

	// Tx starts a catalog transaction. The caller MUST Commit or
	// Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a catalog transaction, committing when fn
	// returns nil and rolling back otherwise. Prefer this over Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// Tx is a transaction-scoped view of the catalog repositories.
type Tx interface {
	Tenants() Tenants
	Domains() Domains
	Commit() error
	Rollback() error
}

// TenantStore is the per-tenant data access interface. All reads and
// writes through it stay inside that tenant's schema; callers pass the
// handle explicitly instead of relying on ambient tenant state.
type TenantStore interface {
	Users() Users
	RefreshTokens() RefreshTokens

	// Tx starts a transaction inside the tenant schema.
	Tx(ctx context.Context) (TenantTx, error)

	// WithTx runs fn inside a tenant-schema transaction.
	WithTx(ctx context.Context, fn func(tx TenantTx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// TenantTx is a transaction-scoped view of the tenant repositories.
type TenantTx interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Commit() error
	Rollback() error
}

type Tenants interface {
	// CreateTenant inserts a new tenant (id is provided by the app via ULID).
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// GetTenantByID returns a tenant by id.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// GetTenantByName returns a tenant by its unique name.
	GetTenantByName(ctx context.Context, name string) (domain.Tenant, error)

	// ListTenants returns all tenants ordered by name.
	ListTenants(ctx context.Context) ([]domain.Tenant, error)

	// UpdateTenant rewrites description, plan and max_users and bumps
	// updated_on.
	UpdateTenant(ctx context.Context, t domain.Tenant) error

	// SetTenantActive flips is_active and bumps updated_on.
	SetTenantActive(ctx context.Context, id string, active bool) error

	// DeleteTenant removes the catalog record. Domain bindings cascade.
	DeleteTenant(ctx context.Context, id string) error
}

type Domains interface {
	// CreateDomain inserts a hostname binding.
	CreateDomain(ctx context.Context, d domain.Domain) error

	// GetDomainByHost returns the binding for a hostname.
	GetDomainByHost(ctx context.Context, host string) (domain.Domain, error)

	// ListDomainsByTenant returns a tenant's bindings, primary first.
	ListDomainsByTenant(ctx context.Context, tenantID string) ([]domain.Domain, error)

	// ClearPrimary demotes every primary binding of the tenant. Used
	// inside the transaction that promotes a new primary.
	ClearPrimary(ctx context.Context, tenantID string) error

	// SetPrimary promotes one binding to primary.
	SetPrimary(ctx context.Context, id string) error

	// DeleteDomain removes one binding by host.
	DeleteDomain(ctx context.Context, host string) error

	// DeleteTenantDomains removes all bindings of a tenant.
	DeleteTenantDomains(ctx context.Context, tenantID string) error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login. Email must already be
	// normalized by the caller.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns users newest first by date_joined.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CountUsers backs the tenant seat ceiling.
	CountUsers(ctx context.Context) (int, error)

	// UpdateFullName mutates the display name.
	UpdateFullName(ctx context.Context, userID, fullName string) error

	// UpdatePasswordHash replaces the stored credential derivative.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetUserActive flips the soft-disable flag.
	SetUserActive(ctx context.Context, userID string, active bool) error

	// UpdateLastLogin stamps a successful credential verification.
	UpdateLastLogin(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record for a token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshToken removes a consumed token during rotation.
	DeleteRefreshToken(ctx context.Context, id string) error

	// DeleteUserRefreshTokens drops all of a user's sessions, e.g. on
	// deactivation.
	DeleteUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
