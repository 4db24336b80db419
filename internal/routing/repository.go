package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phonebook/internal/apperr"
)

// NOTE: This store assumes the defaults table from migrations/0001_init.sql.
// "order" is a reserved word and must stay quoted.

const ruleColumns = `id, "order", regexp, name, action, inserted_at, updated_at`

// Store persists default rules in Postgres.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// List returns every rule in evaluation order.
func (s *Store) List(ctx context.Context) (Rules, error) {
	const q = `
SELECT ` + ruleColumns + `
FROM defaults
ORDER BY "order", id
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list defaults: %w", err)
	}
	defer rows.Close()

	out := Rules{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list defaults: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list defaults: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (DefaultRule, error) {
	const q = `
SELECT ` + ruleColumns + `
FROM defaults
WHERE id = $1
`
	r, err := scanRule(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultRule{}, apperr.NotFound("Default", id)
		}
		return DefaultRule{}, fmt.Errorf("get default %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) Add(ctx context.Context, f RuleFields) (DefaultRule, error) {
	const q = `
INSERT INTO defaults ("order", regexp, name, action, inserted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING ` + ruleColumns

	now := s.clock().UTC()
	r, err := scanRule(s.db.QueryRowContext(ctx, q, f.Order, f.Regexp, f.Name, f.Action, now))
	if err != nil {
		return DefaultRule{}, fmt.Errorf("add default: %w", err)
	}
	patternCache.reset()
	return r, nil
}

func (s *Store) Update(ctx context.Context, id int64, f RuleFields) (DefaultRule, error) {
	const q = `
UPDATE defaults SET "order" = $2, regexp = $3, name = $4, action = $5, updated_at = $6
WHERE id = $1
RETURNING ` + ruleColumns

	now := s.clock().UTC()
	r, err := scanRule(s.db.QueryRowContext(ctx, q, id, f.Order, f.Regexp, f.Name, f.Action, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultRule{}, apperr.NotFound("Default", id)
		}
		return DefaultRule{}, fmt.Errorf("update default %d: %w", id, err)
	}
	patternCache.reset()
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM defaults WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete default %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete default %d: %w", id, err)
	}
	if n == 0 {
		return apperr.NotFound("Default", id)
	}
	patternCache.reset()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (DefaultRule, error) {
	var r DefaultRule
	err := row.Scan(
		&r.ID,
		&r.Order,
		&r.Regexp,
		&r.Name,
		&r.Action,
		&r.InsertedAt,
		&r.UpdatedAt,
	)
	return r, err
}
