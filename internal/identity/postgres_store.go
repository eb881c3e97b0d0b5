package identity

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, org_id, email, name, role, password_hash, disabled, last_seen_at, created_at, updated_at`

// scopeArg turns a validated Scope into the org predicate argument: NULL for
// unscoped (matches everything), the org ID otherwise. Callers must run
// sc.Validate() first so the zero value never reaches SQL.
func scopeArg(sc scope.Scope) sql.NullString {
	if sc.IsUnscoped() {
		return sql.NullString{}
	}
	return sql.NullString{String: sc.OrgID(), Valid: true}
}

func (p *PostgresStore) Create(ctx context.Context, sc scope.Scope, u *User) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(u.OrgID) {
		return ErrUserNotFound
	}
	if u.Role == RoleOwner {
		n, err := p.CountOwners(ctx, scope.For(u.OrgID))
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrOwnerExists
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.OrgID, u.Email, u.Name, string(u.Role), u.PasswordHash,
		u.Disabled, u.LastSeenAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, sc scope.Scope, id string) (*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return p.scanUser(p.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = $1 AND ($2::text IS NULL OR org_id = $2)`, id, scopeArg(sc)))
}

func (p *PostgresStore) GetByEmail(ctx context.Context, sc scope.Scope, email string) (*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return p.scanUser(p.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 AND ($2::text IS NULL OR org_id = $2)`, email, scopeArg(sc)))
}

func (p *PostgresStore) List(ctx context.Context, sc scope.Scope) ([]*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1::text IS NULL OR org_id = $1)
		ORDER BY created_at`, scopeArg(sc))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*User
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, sc scope.Scope, u *User) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE users SET name = $1, role = $2, password_hash = $3, disabled = $4, updated_at = $5
		WHERE id = $6 AND ($7::text IS NULL OR org_id = $7)`,
		u.Name, string(u.Role), u.PasswordHash, u.Disabled, u.UpdatedAt,
		u.ID, scopeArg(sc),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresStore) CountOwners(ctx context.Context, sc scope.Scope) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE role = 'owner' AND disabled = FALSE
		AND ($1::text IS NULL OR org_id = $1)`, scopeArg(sc)).Scan(&count)
	return count, err
}

func (p *PostgresStore) TouchLastSeen(ctx context.Context, sc scope.Scope, id string, at time.Time) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE users SET last_seen_at = $1
		WHERE id = $2 AND ($3::text IS NULL OR org_id = $3)`,
		at, id, scopeArg(sc),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	u, err := scanUserFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

func scanUserFrom(s interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	var (
		role     string
		lastSeen sql.NullTime
	)
	err := s.Scan(&u.ID, &u.OrgID, &u.Email, &u.Name, &role, &u.PasswordHash,
		&u.Disabled, &lastSeen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	if lastSeen.Valid {
		t := lastSeen.Time
		u.LastSeenAt = &t
	}
	return u, nil
}

var _ Store = (*PostgresStore)(nil)
