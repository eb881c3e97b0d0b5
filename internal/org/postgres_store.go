package org

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists organizations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed org store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orgColumns = `id, name, slug, tier, status, trial_started_at, trial_ends_at, stripe_customer_id, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, o *Organization) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO orgs (`+orgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.Name, o.Slug, string(o.Tier), string(o.Status),
		o.TrialStartedAt, o.TrialEndsAt, nullString(o.StripeCustomerID),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Organization, error) {
	return p.scanOrg(p.db.QueryRowContext(ctx, `
		SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id))
}

func (p *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return p.scanOrg(p.db.QueryRowContext(ctx, `
		SELECT `+orgColumns+` FROM orgs WHERE slug = $1`, slug))
}

func (p *PostgresStore) GetByStripeCustomer(ctx context.Context, customerID string) (*Organization, error) {
	return p.scanOrg(p.db.QueryRowContext(ctx, `
		SELECT `+orgColumns+` FROM orgs WHERE stripe_customer_id = $1`, customerID))
}

func (p *PostgresStore) Update(ctx context.Context, o *Organization) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE orgs SET name = $1, tier = $2, status = $3, trial_started_at = $4,
			trial_ends_at = $5, stripe_customer_id = $6, updated_at = $7
		WHERE id = $8`,
		o.Name, string(o.Tier), string(o.Status), o.TrialStartedAt,
		o.TrialEndsAt, nullString(o.StripeCustomerID), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM orgs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (p *PostgresStore) ListTrialsExpired(ctx context.Context, cutoff time.Time) ([]*Organization, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orgColumns+` FROM orgs
		WHERE status = 'trial' AND trial_ends_at < $1
		ORDER BY trial_ends_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Organization
	for rows.Next() {
		o, err := p.scanOrgRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanOrg(row *sql.Row) (*Organization, error) {
	o, err := p.scanInto(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	return o, err
}

func (p *PostgresStore) scanOrgRows(rows *sql.Rows) (*Organization, error) {
	return p.scanInto(rows)
}

func (p *PostgresStore) scanInto(s rowScanner) (*Organization, error) {
	o := &Organization{}
	var (
		tier, status string
		stripeID     sql.NullString
	)
	err := s.Scan(&o.ID, &o.Name, &o.Slug, &tier, &status,
		&o.TrialStartedAt, &o.TrialEndsAt, &stripeID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Tier = Tier(tier)
	o.Status = SubscriptionStatus(status)
	if stripeID.Valid {
		o.StripeCustomerID = stripeID.String
	}
	return o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
