package postgres

import (
	"context"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
)

type tenantsRepo struct {
	db pgq
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO canopy_catalog.tenants
			(id, name, schema_name, description, plan, max_users, is_active, created_on, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.Schema, t.Description, string(t.Plan), t.MaxUsers,
		t.IsActive, t.CreatedOn, t.UpdatedOn,
	)
	return mapConstraint(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	return r.getTenant(ctx, `WHERE id = $1`, id)
}

func (r *tenantsRepo) GetTenantByName(ctx context.Context, name string) (domain.Tenant, error) {
	return r.getTenant(ctx, `WHERE name = $1`, name)
}

func (r *tenantsRepo) getTenant(ctx context.Context, where string, arg any) (domain.Tenant, error) {
	var t domain.Tenant
	var plan string
	err := r.db.QueryRow(ctx, `
		SELECT id, name, schema_name, description, plan, max_users, is_active, created_on, updated_on
		FROM canopy_catalog.tenants `+where, arg,
	).Scan(&t.ID, &t.Name, &t.Schema, &t.Description, &plan, &t.MaxUsers,
		&t.IsActive, &t.CreatedOn, &t.UpdatedOn)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	t.Plan = domain.Plan(plan)
	return t, nil
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, schema_name, description, plan, max_users, is_active, created_on, updated_on
		FROM canopy_catalog.tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		var plan string
		if err := rows.Scan(&t.ID, &t.Name, &t.Schema, &t.Description, &plan,
			&t.MaxUsers, &t.IsActive, &t.CreatedOn, &t.UpdatedOn); err != nil {
			return nil, err
		}
		t.Plan = domain.Plan(plan)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tenantsRepo) UpdateTenant(ctx context.Context, t domain.Tenant) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE canopy_catalog.tenants
		SET description = $1, plan = $2, max_users = $3, updated_on = $4
		WHERE id = $5`,
		t.Description, string(t.Plan), t.MaxUsers, time.Now().UTC(), t.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(tag)
}

func (r *tenantsRepo) SetTenantActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE canopy_catalog.tenants SET is_active = $1, updated_on = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *tenantsRepo) DeleteTenant(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM canopy_catalog.tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

type domainsRepo struct {
	db pgq
}

func (r *domainsRepo) CreateDomain(ctx context.Context, d domain.Domain) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO canopy_catalog.domains (id, tenant_id, host, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.TenantID, d.Host, d.IsPrimary, d.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *domainsRepo) GetDomainByHost(ctx context.Context, host string) (domain.Domain, error) {
	var d domain.Domain
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, host, is_primary, created_at
		FROM canopy_catalog.domains WHERE host = $1`, host,
	).Scan(&d.ID, &d.TenantID, &d.Host, &d.IsPrimary, &d.CreatedAt)
	if err != nil {
		return domain.Domain{}, mapNotFound(err)
	}
	return d, nil
}

func (r *domainsRepo) ListDomainsByTenant(ctx context.Context, tenantID string) ([]domain.Domain, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, host, is_primary, created_at
		FROM canopy_catalog.domains
		WHERE tenant_id = $1
		ORDER BY is_primary DESC, host`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Domain
	for rows.Next() {
		var d domain.Domain
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Host, &d.IsPrimary, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *domainsRepo) ClearPrimary(ctx context.Context, tenantID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE canopy_catalog.domains SET is_primary = FALSE WHERE tenant_id = $1`, tenantID)
	return err
}

func (r *domainsRepo) SetPrimary(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE canopy_catalog.domains SET is_primary = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *domainsRepo) DeleteDomain(ctx context.Context, host string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM canopy_catalog.domains WHERE host = $1`, host)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *domainsRepo) DeleteTenantDomains(ctx context.Context, tenantID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM canopy_catalog.domains WHERE tenant_id = $1`, tenantID)
	return err
}
