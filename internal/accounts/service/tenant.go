package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/idx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// TenantService owns the tenant registry: provisioning, host
// resolution, activation state and teardown.
type TenantService struct {
	Store store.Store
}

type ProvisionParams struct {
	Name        string
	Description string
	Plan        domain.Plan
	MaxUsers    int
	PrimaryHost string
}

// Provision creates a tenant: its isolated schema first, then the
// catalog record and primary domain binding in one transaction. If the
// catalog write fails the schema is dropped again, so a committed
// record always has a live schema behind it.
func (s *TenantService) Provision(ctx context.Context, p ProvisionParams) (domain.Tenant, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.Tenant{}, validationErr("name", "is required")
	}

	plan := p.Plan
	if plan == "" {
		plan = domain.PlanBasic
	}
	if !plan.Valid() {
		return domain.Tenant{}, validationErr("plan", "must be basic, premium or enterprise")
	}

	if p.MaxUsers < 0 {
		return domain.Tenant{}, validationErr("max_users", "must not be negative")
	}
	maxUsers := p.MaxUsers
	if maxUsers == 0 {
		maxUsers = domain.DefaultMaxUsers
	}

	host, err := NormalizeHost(p.PrimaryHost)
	if err != nil {
		return domain.Tenant{}, err
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:          idx.New().String(),
		Name:        name,
		Schema:      SchemaName(name),
		Description: strings.TrimSpace(p.Description),
		Plan:        plan,
		MaxUsers:    maxUsers,
		IsActive:    true,
		CreatedOn:   now,
		UpdatedOn:   now,
	}

	if err := s.Store.CreateSchema(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, ErrDuplicateIdentity
		}
		return domain.Tenant{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			return err
		}
		return tx.Domains().CreateDomain(ctx, domain.Domain{
			ID:        idx.New().String(),
			TenantID:  tenant.ID,
			Host:      host,
			IsPrimary: true,
			CreatedAt: now,
		})
	})
	if err != nil {
		// The record did not commit; take the schema back out.
		if dropErr := s.Store.DropSchema(ctx, tenant); dropErr != nil {
			slogx.FromContext(ctx).Error("orphaned schema after failed provision",
				"schema", tenant.Schema, "err", dropErr)
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, ErrDuplicateIdentity
		}
		return domain.Tenant{}, err
	}

	slogx.FromContext(ctx).Info("tenant provisioned",
		"tenant", tenant.Name, "schema", tenant.Schema, "plan", string(plan))
	return tenant, nil
}

// ResolveHost maps a request hostname to its tenant and a store handle
// scoped to that tenant's schema. This is the explicit tenant-context
// entry point; handlers call it instead of relying on middleware.
func (s *TenantService) ResolveHost(ctx context.Context, host string) (domain.Tenant, store.TenantStore, error) {
	normalized, err := NormalizeHost(host)
	if err != nil {
		return domain.Tenant{}, nil, err
	}

	binding, err := s.Store.Domains().GetDomainByHost(ctx, normalized)
	if err != nil {
		return domain.Tenant{}, nil, err
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, binding.TenantID)
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	if !tenant.IsActive {
		return domain.Tenant{}, nil, ErrTenantInactive
	}

	ts, err := s.Store.OpenTenant(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	return tenant, ts, nil
}

// Get fetches a tenant by id.
func (s *TenantService) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	return s.Store.Tenants().GetTenantByID(ctx, tenantID)
}

// GetByName fetches a tenant by its unique name.
func (s *TenantService) GetByName(ctx context.Context, name string) (domain.Tenant, error) {
	return s.Store.Tenants().GetTenantByName(ctx, strings.TrimSpace(name))
}

type UpdateParams struct {
	Description *string
	Plan        *domain.Plan
	MaxUsers    *int
}

// Update patches a tenant's description, plan or seat ceiling. Nil
// fields keep their current value. Name and schema are immutable after
// provisioning.
func (s *TenantService) Update(ctx context.Context, tenantID string, p UpdateParams) (domain.Tenant, error) {
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}

	if p.Description != nil {
		tenant.Description = strings.TrimSpace(*p.Description)
	}
	if p.Plan != nil {
		if !p.Plan.Valid() {
			return domain.Tenant{}, validationErr("plan", "must be basic, premium or enterprise")
		}
		tenant.Plan = *p.Plan
	}
	if p.MaxUsers != nil {
		if *p.MaxUsers < 0 {
			return domain.Tenant{}, validationErr("max_users", "must not be negative")
		}
		tenant.MaxUsers = *p.MaxUsers
	}

	if err := s.Store.Tenants().UpdateTenant(ctx, tenant); err != nil {
		return domain.Tenant{}, err
	}

	// Re-read to pick up the bumped updated_on stamp.
	return s.Store.Tenants().GetTenantByID(ctx, tenantID)
}

// List returns all tenants ordered by name.
func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.Store.Tenants().ListTenants(ctx)
}

// Deactivate soft-disables a tenant. Idempotent: deactivating twice
// leaves is_active false both times with no error.
func (s *TenantService) Deactivate(ctx context.Context, tenantID string) error {
	return s.Store.Tenants().SetTenantActive(ctx, tenantID, false)
}

// Reactivate re-enables a deactivated tenant. Idempotent.
func (s *TenantService) Reactivate(ctx context.Context, tenantID string) error {
	return s.Store.Tenants().SetTenantActive(ctx, tenantID, true)
}

// Teardown removes the tenant's domains and catalog record, then drops
// its schema and all data in it.
func (s *TenantService) Teardown(ctx context.Context, tenantID string) error {
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Domains().DeleteTenantDomains(ctx, tenant.ID); err != nil {
			return err
		}
		return tx.Tenants().DeleteTenant(ctx, tenant.ID)
	})
	if err != nil {
		return err
	}

	if err := s.Store.DropSchema(ctx, tenant); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("tenant torn down", "tenant", tenant.Name)
	return nil
}

// AttachDomain binds an additional hostname to a tenant. Attaching a
// primary binding demotes the previous primary in the same transaction
// so the one-primary-per-tenant invariant holds. Attaching a host the
// tenant already owns as primary promotes the existing binding instead
// of failing.
func (s *TenantService) AttachDomain(ctx context.Context, tenantID, host string, primary bool) (domain.Domain, error) {
	normalized, err := NormalizeHost(host)
	if err != nil {
		return domain.Domain{}, err
	}

	if _, err := s.Store.Tenants().GetTenantByID(ctx, tenantID); err != nil {
		return domain.Domain{}, err
	}

	binding := domain.Domain{
		ID:        idx.New().String(),
		TenantID:  tenantID,
		Host:      normalized,
		IsPrimary: primary,
		CreatedAt: time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if primary {
			existing, err := tx.Domains().GetDomainByHost(ctx, normalized)
			switch {
			case err == nil && existing.TenantID == tenantID:
				if err := tx.Domains().ClearPrimary(ctx, tenantID); err != nil {
					return err
				}
				if err := tx.Domains().SetPrimary(ctx, existing.ID); err != nil {
					return err
				}
				existing.IsPrimary = true
				binding = existing
				return nil
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}

			if err := tx.Domains().ClearPrimary(ctx, tenantID); err != nil {
				return err
			}
		}
		return tx.Domains().CreateDomain(ctx, binding)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Domain{}, ErrDuplicateIdentity
		}
		return domain.Domain{}, err
	}
	return binding, nil
}

// RemoveDomain deletes a hostname binding. The primary binding can only
// go once it is the tenant's last one.
func (s *TenantService) RemoveDomain(ctx context.Context, tenantID, host string) error {
	normalized, err := NormalizeHost(host)
	if err != nil {
		return err
	}

	binding, err := s.Store.Domains().GetDomainByHost(ctx, normalized)
	if err != nil {
		return err
	}
	if binding.TenantID != tenantID {
		return store.ErrNotFound
	}

	if binding.IsPrimary {
		all, err := s.Store.Domains().ListDomainsByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if len(all) > 1 {
			return validationErr("host", "cannot remove the primary domain while others exist")
		}
	}

	return s.Store.Domains().DeleteDomain(ctx, normalized)
}

// ListDomains returns a tenant's bindings, primary first.
func (s *TenantService) ListDomains(ctx context.Context, tenantID string) ([]domain.Domain, error) {
	return s.Store.Domains().ListDomainsByTenant(ctx, tenantID)
}

// NormalizeHost lower-cases a hostname and strips any port.
func NormalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return "", validationErr("host", "is required")
	}
	if strings.ContainsAny(host, "/ \t") {
		return "", validationErr("host", "is not a valid hostname")
	}
	return host, nil
}

// SchemaName derives a storage namespace from a tenant name: lower
// case, runs of other characters collapsed to underscores, guaranteed
// to start with a letter, at most 63 characters.
func SchemaName(name string) string {
	var b strings.Builder
	lastUnderscore := true // also trims leading underscores
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	schema := strings.TrimSuffix(b.String(), "_")
	if schema == "" || schema[0] >= '0' && schema[0] <= '9' {
		schema = "t_" + schema
	}
	if len(schema) > 63 {
		schema = schema[:63]
	}
	return strings.TrimSuffix(schema, "_")
}
