package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phonebook/internal/apperr"
	"phonebook/internal/query"
)

// NOTE: phone_calls rows are never updated or deleted by this package.

const detailsColumns = `phone_calls.id, phone_calls.action, phone_calls.contact_id, phone_calls.phone_number, phone_calls.destination_number, phone_calls.inserted_at, phone_calls.updated_at,
contacts.name, contacts.phone_number, contacts.action, contacts.comments,
(SELECT COUNT(*) FROM phone_calls AS pc WHERE pc.contact_id = contacts.id) AS number_calls`

const detailsFrom = `phone_calls
INNER JOIN contacts ON contacts.id = phone_calls.contact_id`

// SearchColumns are matched by the free-text search on the call list.
var SearchColumns = []string{"contacts.phone_number", "contacts.name", "phone_calls.destination_number"}

// Repository is the persistence contract for phone calls.
type Repository interface {
	Insert(ctx context.Context, c NewCall) (int64, error)
	GetDetails(ctx context.Context, id int64) (Details, error)
	List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error)
}

// Store persists phone calls in Postgres.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

func (s *Store) Insert(ctx context.Context, c NewCall) (int64, error) {
	const q = `
INSERT INTO phone_calls (action, contact_id, phone_number, destination_number, inserted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id
`
	var dest sql.NullString
	if c.DestinationNumber != nil {
		dest = sql.NullString{String: *c.DestinationNumber, Valid: true}
	}

	var id int64
	now := s.clock().UTC()
	if err := s.db.QueryRowContext(ctx, q, c.Action, c.ContactID, c.PhoneNumber, dest, now).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert phone call: %w", err)
	}
	return id, nil
}

func (s *Store) GetDetails(ctx context.Context, id int64) (Details, error) {
	q := `
SELECT ` + detailsColumns + `
FROM ` + detailsFrom + `
WHERE phone_calls.id = $1
`
	d, err := scanDetails(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Details{}, apperr.NotFound("PhoneCall", id)
		}
		return Details{}, fmt.Errorf("get phone call %d: %w", id, err)
	}
	return d, nil
}

// ListQuery builds the keyset query for one page of calls, newest first.
func ListQuery(req ListRequest) query.Query {
	q := query.Query{
		Select: detailsColumns,
		From:   detailsFrom,
		OrderBy: []query.Sort{
			{Column: "phone_calls.inserted_at", Direction: query.Desc},
			{Column: "phone_calls.id", Direction: query.Desc},
		},
		Limit: req.Limit,
	}
	if req.ContactID != nil {
		q.And(query.Eq("phone_calls.contact_id", *req.ContactID))
	}
	q.And(query.Search(req.Search, SearchColumns...)...)
	if req.AfterKey != nil {
		q.And(query.After(
			[]string{"phone_calls.inserted_at", "phone_calls.id"},
			[]any{req.AfterKey.InsertedAt, req.AfterKey.ID},
			query.Desc,
		))
	}
	return q
}

func (s *Store) List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error) {
	req.Limit = query.ClampLimit(req.Limit, query.DefaultLimit)
	sqlText, args := ListQuery(req).Postgres()

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return query.Page[Details, Key]{}, fmt.Errorf("list phone calls: %w", err)
	}
	defer rows.Close()

	items := make([]Details, 0, req.Limit)
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return query.Page[Details, Key]{}, fmt.Errorf("list phone calls: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return query.Page[Details, Key]{}, fmt.Errorf("list phone calls: %w", err)
	}
	return query.NewPage(items, req.Limit, Details.Key), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetails(row rowScanner) (Details, error) {
	var d Details
	var dest, name, comments sql.NullString
	err := row.Scan(
		&d.ID, &d.Action, &d.ContactID, &d.PhoneNumber, &dest, &d.InsertedAt, &d.UpdatedAt,
		&name, &d.ContactPhoneNumber, &d.ContactAction, &comments,
		&d.NumberCalls,
	)
	if err != nil {
		return Details{}, err
	}
	d.DestinationNumber = stringPtr(dest)
	d.ContactName = stringPtr(name)
	d.ContactComments = stringPtr(comments)
	return d, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
