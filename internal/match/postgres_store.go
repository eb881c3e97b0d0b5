package match

import (
	"context"
	"database/sql"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// PostgresStore persists matches in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed match store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const matchColumns = `id, org_id, kind, opponent, game, scheduled_at, result, score, vod_url, review_notes, created_at, updated_at`

func scopeArg(sc scope.Scope) sql.NullString {
	if sc.IsUnscoped() {
		return sql.NullString{}
	}
	return sql.NullString{String: sc.OrgID(), Valid: true}
}

func (p *PostgresStore) Create(ctx context.Context, sc scope.Scope, m *Match) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(m.OrgID) {
		return ErrMatchNotFound
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.OrgID, string(m.Kind), m.Opponent, m.Game, m.ScheduledAt,
		m.Result, m.Score, m.VODURL, m.ReviewNotes, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, sc scope.Scope, id string) (*Match, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return p.scanMatch(p.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE id = $1 AND ($2::text IS NULL OR org_id = $2)`, id, scopeArg(sc)))
}

func (p *PostgresStore) List(ctx context.Context, sc scope.Scope) ([]*Match, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE ($1::text IS NULL OR org_id = $1)
		ORDER BY scheduled_at DESC`, scopeArg(sc))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Match
	for rows.Next() {
		m, err := scanMatchFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, sc scope.Scope, m *Match) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE matches SET opponent = $1, game = $2, scheduled_at = $3, result = $4,
			score = $5, vod_url = $6, review_notes = $7, updated_at = $8
		WHERE id = $9 AND ($10::text IS NULL OR org_id = $10)`,
		m.Opponent, m.Game, m.ScheduledAt, m.Result, m.Score, m.VODURL,
		m.ReviewNotes, m.UpdatedAt, m.ID, scopeArg(sc),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM matches
		WHERE id = $1 AND ($2::text IS NULL OR org_id = $2)`, id, scopeArg(sc))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (p *PostgresStore) CountInMonth(ctx context.Context, sc scope.Scope, t time.Time) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	start, end := monthWindow(t)
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE scheduled_at >= $1 AND scheduled_at < $2
		AND ($3::text IS NULL OR org_id = $3)`, start, end, scopeArg(sc)).Scan(&count)
	return count, err
}

func (p *PostgresStore) scanMatch(row *sql.Row) (*Match, error) {
	m, err := scanMatchFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}
	return m, err
}

func scanMatchFrom(s interface{ Scan(...any) error }) (*Match, error) {
	m := &Match{}
	var kind string
	err := s.Scan(&m.ID, &m.OrgID, &kind, &m.Opponent, &m.Game, &m.ScheduledAt,
		&m.Result, &m.Score, &m.VODURL, &m.ReviewNotes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = Kind(kind)
	return m, nil
}

var _ Store = (*PostgresStore)(nil)
