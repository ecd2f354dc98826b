// Package sqlite implements the accounts store over SQLite. SQLite has
// no schemas, so each tenant's namespace is its own database file under
// the data directory, next to the shared catalog database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"

	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories work
// inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	dataDir string

	mu      sync.Mutex
	tenants map[string]*tenantStore // keyed by schema name
}

// NewStore opens (creating if needed) the catalog database under
// dataDir. Tenant databases live in dataDir/tenants/.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "tenants"), 0o750); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	db, err := openDatabase(filepath.Join(dataDir, "catalog.db"))
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		dataDir: dataDir,
		tenants: make(map[string]*tenantStore),
	}, nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enforce FKs; sqlite defaults them off per connection.
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) Tenants() store.Tenants { return &tenantsRepo{db: s.db} }
func (s *Store) Domains() store.Domains { return &domainsRepo{db: s.db} }

func (s *Store) tenantPath(schema string) string {
	return filepath.Join(s.dataDir, "tenants", schema+".db")
}

// CreateSchema creates the tenant's database file and applies the
// tenant migrations to it. Fails if the file already exists.
func (s *Store) CreateSchema(ctx context.Context, t domain.Tenant) error {
	if err := validSchemaName(t.Schema); err != nil {
		return err
	}

	path := s.tenantPath(t.Schema)
	if _, err := os.Stat(path); err == nil {
		return store.ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("sqlite: stat tenant db: %w", err)
	}

	db, err := openDatabase(path)
	if err != nil {
		return fmt.Errorf("sqlite: create tenant db: %w", err)
	}

	if err := applyMigrations(db, tenantMigrationsDir); err != nil {
		_ = db.Close()
		_ = s.removeTenantFiles(t.Schema)
		return fmt.Errorf("sqlite: migrate tenant db: %w", err)
	}

	s.mu.Lock()
	s.tenants[t.Schema] = &tenantStore{db: db}
	s.mu.Unlock()
	return nil
}

// DropSchema closes any open handle and deletes the tenant's database
// file. Dropping a schema that never existed is not an error.
func (s *Store) DropSchema(ctx context.Context, t domain.Tenant) error {
	if err := validSchemaName(t.Schema); err != nil {
		return err
	}

	s.mu.Lock()
	if ts, ok := s.tenants[t.Schema]; ok {
		_ = ts.db.Close()
		delete(s.tenants, t.Schema)
	}
	s.mu.Unlock()

	return s.removeTenantFiles(t.Schema)
}

func (s *Store) removeTenantFiles(schema string) error {
	path := s.tenantPath(schema)
	for _, f := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("sqlite: remove %s: %w", f, err)
		}
	}
	return nil
}

// OpenTenant returns the handle for a tenant's database, opening and
// migrating it on first use. Handles are cached per schema.
func (s *Store) OpenTenant(ctx context.Context, t domain.Tenant) (store.TenantStore, error) {
	if err := validSchemaName(t.Schema); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ts, ok := s.tenants[t.Schema]; ok {
		return ts, nil
	}

	path := s.tenantPath(t.Schema)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open tenant db: %w", err)
	}
	if err := applyMigrations(db, tenantMigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate tenant db: %w", err)
	}

	ts := &tenantStore{db: db}
	s.tenants[t.Schema] = ts
	return ts, nil
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &catalogTx{tx: tx}, nil
}

// WithTx executes fn within a catalog transaction, handling
// commit/rollback automatically.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback is a no-op after a successful commit.
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	for schema, ts := range s.tenants {
		_ = ts.db.Close()
		delete(s.tenants, schema)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// validSchemaName rejects anything that could escape the tenants
// directory or collide with sqlite sidecar files.
func validSchemaName(schema string) error {
	if schema == "" || len(schema) > 63 {
		return fmt.Errorf("sqlite: invalid schema name %q", schema)
	}
	for i, r := range schema {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_' && i > 0:
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("sqlite: invalid schema name %q", schema)
		}
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint surfaces unique violations as store.ErrAlreadyExists.
// Other constraint classes (NOT NULL, CHECK, foreign key) pass through
// unchanged.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// requireRow turns a zero-rows-affected mutation into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
