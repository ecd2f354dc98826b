package sqlite

import (
	"context"

	"github.com/canopysaas/canopy/internal/accounts/domain"
)

type domainsRepo struct {
	db dbtx
}

const domainColumns = `id, tenant_id, host, is_primary, created_at`

func (r *domainsRepo) CreateDomain(ctx context.Context, d domain.Domain) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO domains (`+domainColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.TenantID, d.Host, d.IsPrimary, d.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *domainsRepo) GetDomainByHost(ctx context.Context, host string) (domain.Domain, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+domainColumns+` FROM domains WHERE host = ?`, host)
	return scanDomain(row)
}

func (r *domainsRepo) ListDomainsByTenant(ctx context.Context, tenantID string) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+domainColumns+` FROM domains
		WHERE tenant_id = ?
		ORDER BY is_primary DESC, host`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *domainsRepo) ClearPrimary(ctx context.Context, tenantID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE domains SET is_primary = 0 WHERE tenant_id = ?`, tenantID)
	return err
}

func (r *domainsRepo) SetPrimary(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE domains SET is_primary = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *domainsRepo) DeleteDomain(ctx context.Context, host string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM domains WHERE host = ?`, host)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *domainsRepo) DeleteTenantDomains(ctx context.Context, tenantID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM domains WHERE tenant_id = ?`, tenantID)
	return err
}

func scanDomain(s scanner) (domain.Domain, error) {
	var d domain.Domain
	err := s.Scan(&d.ID, &d.TenantID, &d.Host, &d.IsPrimary, &d.CreatedAt)
	if err != nil {
		return domain.Domain{}, mapNotFound(err)
	}
	return d, nil
}
