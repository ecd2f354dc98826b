// Package postgres implements the accounts store over PostgreSQL with
// one schema per tenant. The catalog lives in the canopy_catalog
// schema; each tenant gets its own schema holding users and
// refresh_tokens.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgq is satisfied by *pgxpool.Pool and pgx.Tx so repositories work
// inside and outside transactions.
type pgq interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const catalogSchema = "canopy_catalog"

type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pgx pool to the given URL.
func NewStore(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Tenants() store.Tenants { return &tenantsRepo{db: s.pool} }
func (s *Store) Domains() store.Domains { return &domainsRepo{db: s.pool} }

// CreateSchema creates the tenant's schema and its tables.
func (s *Store) CreateSchema(ctx context.Context, t domain.Tenant) error {
	if err := validSchemaName(t.Schema); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "CREATE SCHEMA "+quoteIdent(t.Schema)); err != nil {
		return mapConstraint(err)
	}
	if _, err := tx.Exec(ctx, tenantDDL(t.Schema)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DropSchema drops the tenant's schema and everything in it.
func (s *Store) DropSchema(ctx context.Context, t domain.Tenant) error {
	if err := validSchemaName(t.Schema); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+quoteIdent(t.Schema)+" CASCADE")
	return err
}

// OpenTenant returns a handle whose queries are qualified with the
// tenant's schema. The pool is shared; the handle is cheap.
func (s *Store) OpenTenant(ctx context.Context, t domain.Tenant) (store.TenantStore, error) {
	if err := validSchemaName(t.Schema); err != nil {
		return nil, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.schemata WHERE schema_name = $1
		)`, t.Schema).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	return &tenantStore{pool: s.pool, schema: t.Schema}, nil
}

// ApplyMigrations creates the catalog schema and tables. The DDL is
// idempotent so startup can always run it.
func (s *Store) ApplyMigrations() error {
	_, err := s.pool.Exec(context.Background(), catalogDDL)
	return err
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &catalogTx{ctx: ctx, tx: tx}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// validSchemaName keeps schema names to safe identifier characters so
// they can be interpolated into DDL.
func validSchemaName(schema string) error {
	if schema == "" || len(schema) > 63 {
		return fmt.Errorf("postgres: invalid schema name %q", schema)
	}
	for i, r := range schema {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_' && i > 0:
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("postgres: invalid schema name %q", schema)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func table(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint surfaces unique violations (and duplicate schemas) as
// store.ErrAlreadyExists.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 unique_violation, 42P06 duplicate_schema
		if pgErr.Code == "23505" || pgErr.Code == "42P06" {
			return store.ErrAlreadyExists
		}
	}
	return err
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
