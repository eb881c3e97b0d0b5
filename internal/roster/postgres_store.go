package roster

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// PostgresStore persists players in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed player store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const playerColumns = `id, org_id, handle, name, game, position, active, created_at, updated_at`

func scopeArg(sc scope.Scope) sql.NullString {
	if sc.IsUnscoped() {
		return sql.NullString{}
	}
	return sql.NullString{String: sc.OrgID(), Valid: true}
}

func (p *PostgresStore) Create(ctx context.Context, sc scope.Scope, pl *Player) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(pl.OrgID) {
		return ErrPlayerNotFound
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pl.ID, pl.OrgID, pl.Handle, pl.Name, pl.Game, pl.Position,
		pl.Active, pl.CreatedAt, pl.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrHandleTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, sc scope.Scope, id string) (*Player, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return p.scanPlayer(p.db.QueryRowContext(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE id = $1 AND ($2::text IS NULL OR org_id = $2)`, id, scopeArg(sc)))
}

func (p *PostgresStore) List(ctx context.Context, sc scope.Scope) ([]*Player, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE ($1::text IS NULL OR org_id = $1)
		ORDER BY created_at`, scopeArg(sc))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Player
	for rows.Next() {
		pl, err := scanPlayerFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, sc scope.Scope, pl *Player) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE players SET handle = $1, name = $2, game = $3, position = $4,
			active = $5, updated_at = $6
		WHERE id = $7 AND ($8::text IS NULL OR org_id = $8)`,
		pl.Handle, pl.Name, pl.Game, pl.Position, pl.Active, pl.UpdatedAt,
		pl.ID, scopeArg(sc),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM players
		WHERE id = $1 AND ($2::text IS NULL OR org_id = $2)`, id, scopeArg(sc))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (p *PostgresStore) CountActive(ctx context.Context, sc scope.Scope) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM players
		WHERE active = TRUE AND ($1::text IS NULL OR org_id = $1)`, scopeArg(sc)).Scan(&count)
	return count, err
}

func (p *PostgresStore) scanPlayer(row *sql.Row) (*Player, error) {
	pl, err := scanPlayerFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlayerNotFound
	}
	return pl, err
}

func scanPlayerFrom(s interface{ Scan(...any) error }) (*Player, error) {
	pl := &Player{}
	err := s.Scan(&pl.ID, &pl.OrgID, &pl.Handle, &pl.Name, &pl.Game, &pl.Position,
		&pl.Active, &pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return pl, nil
}

var _ Store = (*PostgresStore)(nil)
