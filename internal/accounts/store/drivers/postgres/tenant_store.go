package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// tenantStore qualifies every query with one tenant's schema. It
// shares the root pool, so Close is a no-op.
type tenantStore struct {
	pool   *pgxpool.Pool
	schema string
}

func (t *tenantStore) Users() store.Users {
	return &usersRepo{db: t.pool, schema: t.schema}
}

func (t *tenantStore) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{db: t.pool, schema: t.schema}
}

func (t *tenantStore) Tx(ctx context.Context) (store.TenantTx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tenantTx{ctx: ctx, tx: tx, schema: t.schema}, nil
}

func (t *tenantStore) WithTx(ctx context.Context, fn func(tx store.TenantTx) error) error {
	tx, err := t.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *tenantStore) Ping(ctx context.Context) error { return t.pool.Ping(ctx) }
func (t *tenantStore) Close() error                   { return nil }

// catalogTx and tenantTx adapt pgx.Tx to the store transaction
// interfaces. pgx transactions need a context on Commit/Rollback, so
// the starting context is carried along.
type catalogTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *catalogTx) Tenants() store.Tenants { return &tenantsRepo{db: t.tx} }
func (t *catalogTx) Domains() store.Domains { return &domainsRepo{db: t.tx} }
func (t *catalogTx) Commit() error          { return t.tx.Commit(t.ctx) }
func (t *catalogTx) Rollback() error        { return t.tx.Rollback(t.ctx) }

type tenantTx struct {
	ctx    context.Context
	tx     pgx.Tx
	schema string
}

func (t *tenantTx) Users() store.Users {
	return &usersRepo{db: t.tx, schema: t.schema}
}

func (t *tenantTx) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{db: t.tx, schema: t.schema}
}

func (t *tenantTx) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *tenantTx) Rollback() error { return t.tx.Rollback(t.ctx) }

type usersRepo struct {
	db     pgq
	schema string
}

func (r *usersRepo) users() string { return table(r.schema, "users") }

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO `+r.users()+`
			(id, email, full_name, password_hash, is_staff, is_active, date_joined, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.IsStaff, u.IsActive,
		u.DateJoined, optionalTime(u.LastLogin),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *usersRepo) getUser(ctx context.Context, where string, arg any) (domain.User, error) {
	var u domain.User
	var lastLogin sql.NullTime
	err := r.db.QueryRow(ctx, `
		SELECT id, email, full_name, password_hash, is_staff, is_active, date_joined, last_login
		FROM `+r.users()+` `+where, arg,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsStaff,
		&u.IsActive, &u.DateJoined, &lastLogin)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, email, full_name, password_hash, is_staff, is_active, date_joined, last_login
		FROM `+r.users()+` ORDER BY date_joined DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash,
			&u.IsStaff, &u.IsActive, &u.DateJoined, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+r.users()).Scan(&count)
	return count, err
}

func (r *usersRepo) UpdateFullName(ctx context.Context, userID, fullName string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE `+r.users()+` SET full_name = $1 WHERE id = $2`, fullName, userID)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE `+r.users()+` SET password_hash = $1 WHERE id = $2`, newHash, userID)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE `+r.users()+` SET is_active = $1 WHERE id = $2`, active, userID)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE `+r.users()+` SET last_login = $1 WHERE id = $2`, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

type refreshTokensRepo struct {
	db     pgq
	schema string
}

func (r *refreshTokensRepo) tokens() string { return table(r.schema, "refresh_tokens") }

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO `+r.tokens()+` (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM `+r.tokens()+` WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM `+r.tokens()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag)
}

func (r *refreshTokensRepo) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM `+r.tokens()+` WHERE user_id = $1`, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM `+r.tokens()+` WHERE expires_at < $1`, time.Now().UTC())
	return err
}

func optionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
