package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phonebook/internal/apperr"
	"phonebook/internal/query"
	"phonebook/pkg/utils"
)

// NOTE: This store assumes the contacts and phone_calls tables from
// migrations/0001_init.sql. number_calls is always derived, never stored.

const contactColumns = `contacts.id, contacts.phone_number, contacts.name, contacts.action, contacts.comments, contacts.inserted_at, contacts.updated_at`

const detailsColumns = contactColumns + `, (SELECT COUNT(*) FROM phone_calls WHERE phone_calls.contact_id = contacts.id) AS number_calls`

// SearchColumns are matched by the free-text search on the contact list.
var SearchColumns = []string{"contacts.phone_number", "contacts.name", "contacts.comments"}

// ErrHasCalls blocks deleting a contact that still has call history.
var ErrHasCalls error = &apperr.ConflictError{Message: "Contact has phone calls"}

// Store persists contacts in Postgres.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// GetByPhoneNumber returns the contact for an exact phone number.
// If duplicates exist the oldest row wins, so repeated lookups are stable.
func (s *Store) GetByPhoneNumber(ctx context.Context, phone string) (Contact, bool, error) {
	const q = `
SELECT ` + contactColumns + `
FROM contacts
WHERE phone_number = $1
ORDER BY id
LIMIT 1
`
	c, err := scanContact(s.db.QueryRowContext(ctx, q, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, false, nil
		}
		return Contact{}, false, fmt.Errorf("get contact by phone number: %w", err)
	}
	return c, true, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Details, error) {
	const q = `
SELECT ` + detailsColumns + `
FROM contacts
WHERE id = $1
`
	d, err := scanDetails(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Details{}, apperr.NotFound("Contact", id)
		}
		return Details{}, fmt.Errorf("get contact %d: %w", id, err)
	}
	return d, nil
}

func (s *Store) Add(ctx context.Context, req AddRequest) (Contact, error) {
	const q = `
INSERT INTO contacts (phone_number, name, action, comments, inserted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING ` + contactColumns

	now := s.clock().UTC()
	c, err := scanContact(s.db.QueryRowContext(ctx, q, req.PhoneNumber, nullString(req.Name), req.Action, nullString(req.Comments), now))
	if err != nil {
		return Contact{}, fmt.Errorf("add contact: %w", err)
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, req UpdateRequest) (Contact, error) {
	const q = `
UPDATE contacts SET name = $2, action = $3, comments = $4, updated_at = $5
WHERE id = $1
RETURNING ` + contactColumns

	now := s.clock().UTC()
	c, err := scanContact(s.db.QueryRowContext(ctx, q, req.ID, nullString(req.Name), req.Action, nullString(req.Comments), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, apperr.NotFound("Contact", req.ID)
		}
		return Contact{}, fmt.Errorf("update contact %d: %w", req.ID, err)
	}
	return c, nil
}

// Delete removes a contact with no call history and returns the removed row.
// The contact row is locked first so a concurrent incoming call cannot attach
// a call between the check and the delete.
func (s *Store) Delete(ctx context.Context, id int64) (Contact, error) {
	var out Contact
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const lockQ = `
SELECT ` + contactColumns + `
FROM contacts
WHERE id = $1
FOR UPDATE
`
		c, err := scanContact(tx.QueryRowContext(ctx, lockQ, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Contact", id)
			}
			return err
		}

		var calls int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM phone_calls WHERE contact_id = $1`, id).Scan(&calls); err != nil {
			return err
		}
		if calls > 0 {
			return ErrHasCalls
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if apperr.IsNotFound(err) || errors.Is(err, ErrHasCalls) {
			return Contact{}, err
		}
		return Contact{}, fmt.Errorf("delete contact %d: %w", id, err)
	}
	return out, nil
}

// ListQuery builds the keyset query for one page of contacts.
func ListQuery(req ListRequest) query.Query {
	q := query.Query{
		Select: detailsColumns,
		From:   "contacts",
		OrderBy: []query.Sort{
			{Column: "contacts.phone_number", Direction: query.Asc},
			{Column: "contacts.id", Direction: query.Asc},
		},
		Limit: req.Limit,
	}
	q.And(query.Search(req.Search, SearchColumns...)...)
	if req.AfterKey != nil {
		q.And(query.After(
			[]string{"contacts.phone_number", "contacts.id"},
			[]any{req.AfterKey.PhoneNumber, req.AfterKey.ID},
			query.Asc,
		))
	}
	return q
}

func (s *Store) List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error) {
	req.Limit = query.ClampLimit(req.Limit, query.DefaultLimit)
	sqlText, args := ListQuery(req).Postgres()

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return query.Page[Details, Key]{}, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Details, 0, req.Limit)
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return query.Page[Details, Key]{}, fmt.Errorf("list contacts: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return query.Page[Details, Key]{}, fmt.Errorf("list contacts: %w", err)
	}
	return query.NewPage(items, req.Limit, Details.Key), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	var name, comments sql.NullString
	if err := row.Scan(&c.ID, &c.PhoneNumber, &name, &c.Action, &comments, &c.InsertedAt, &c.UpdatedAt); err != nil {
		return Contact{}, err
	}
	c.Name = stringPtr(name)
	c.Comments = stringPtr(comments)
	return c, nil
}

func scanDetails(row rowScanner) (Details, error) {
	var d Details
	var name, comments sql.NullString
	if err := row.Scan(&d.ID, &d.PhoneNumber, &name, &d.Action, &comments, &d.InsertedAt, &d.UpdatedAt, &d.NumberCalls); err != nil {
		return Details{}, err
	}
	d.Name = stringPtr(name)
	d.Comments = stringPtr(comments)
	return d, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
