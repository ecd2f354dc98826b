package sqlite

import (
	"context"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
)

type tenantsRepo struct {
	db dbtx
}

const tenantColumns = `id, name, schema_name, description, plan, max_users, is_active, created_on, updated_on`

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Schema, t.Description, string(t.Plan), t.MaxUsers,
		t.IsActive, t.CreatedOn, t.UpdatedOn,
	)
	return mapConstraint(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

func (r *tenantsRepo) GetTenantByName(ctx context.Context, name string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE name = ?`, name)
	return scanTenant(row)
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tenantsRepo) UpdateTenant(ctx context.Context, t domain.Tenant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET description = ?, plan = ?, max_users = ?, updated_on = ?
		WHERE id = ?`,
		t.Description, string(t.Plan), t.MaxUsers, time.Now().UTC(), t.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *tenantsRepo) SetTenantActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET is_active = ?, updated_on = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *tenantsRepo) DeleteTenant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (domain.Tenant, error) {
	var t domain.Tenant
	var plan string
	err := s.Scan(
		&t.ID, &t.Name, &t.Schema, &t.Description, &plan, &t.MaxUsers,
		&t.IsActive, &t.CreatedOn, &t.UpdatedOn,
	)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	t.Plan = domain.Plan(plan)
	return t, nil
}
