package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"phonebook/internal/apperr"
	"phonebook/internal/contacts"
	"phonebook/internal/query"
)

// ContactSource resolves the contact fields joined into call details.
type ContactSource interface {
	Get(ctx context.Context, id int64) (contacts.Details, error)
}

// MemoryStore is an in-memory call store for tests and local development.
// Contact fields are read live from Contacts, like the SQL join.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	calls  []PhoneCall

	Contacts ContactSource
	Now      func() time.Time
}

func NewMemoryStore(src ContactSource) *MemoryStore {
	return &MemoryStore{Contacts: src, Now: time.Now}
}

func (m *MemoryStore) Insert(ctx context.Context, c NewCall) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.Now().UTC()
	m.calls = append(m.calls, PhoneCall{
		ID:                m.nextID,
		Action:            c.Action,
		ContactID:         c.ContactID,
		PhoneNumber:       c.PhoneNumber,
		DestinationNumber: c.DestinationNumber,
		InsertedAt:        now,
		UpdatedAt:         now,
	})
	if inc, ok := m.Contacts.(interface{ IncrementCalls(int64) }); ok {
		inc.IncrementCalls(c.ContactID)
	}
	return m.nextID, nil
}

func (m *MemoryStore) GetDetails(ctx context.Context, id int64) (Details, error) {
	m.mu.Lock()
	var found *PhoneCall
	for i := range m.calls {
		if m.calls[i].ID == id {
			pc := m.calls[i]
			found = &pc
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return Details{}, apperr.NotFound("PhoneCall", id)
	}
	return m.join(ctx, *found)
}

func (m *MemoryStore) List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error) {
	limit := query.ClampLimit(req.Limit, query.DefaultLimit)
	term := strings.ToLower(strings.TrimSpace(req.Search))

	m.mu.Lock()
	all := make([]PhoneCall, len(m.calls))
	copy(all, m.calls)
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return keyBefore(Key{all[i].InsertedAt, all[i].ID}, Key{all[j].InsertedAt, all[j].ID})
	})

	items := make([]Details, 0, limit)
	for _, pc := range all {
		if req.ContactID != nil && pc.ContactID != *req.ContactID {
			continue
		}
		if req.AfterKey != nil && !keyBefore(*req.AfterKey, Key{pc.InsertedAt, pc.ID}) {
			continue
		}
		d, err := m.join(ctx, pc)
		if err != nil {
			return query.Page[Details, Key]{}, err
		}
		if term != "" && !matches(d, term) {
			continue
		}
		items = append(items, d)
		if len(items) == limit {
			break
		}
	}
	return query.NewPage(items, limit, Details.Key), nil
}

func (m *MemoryStore) join(ctx context.Context, pc PhoneCall) (Details, error) {
	c, err := m.Contacts.Get(ctx, pc.ContactID)
	if err != nil {
		return Details{}, err
	}
	return Details{
		PhoneCall:          pc,
		ContactName:        c.Name,
		ContactPhoneNumber: c.PhoneNumber,
		ContactAction:      c.Action,
		ContactComments:    c.Comments,
		NumberCalls:        c.NumberCalls,
	}, nil
}

// keyBefore reports whether a sorts before b in newest-first order.
func keyBefore(a, b Key) bool {
	if !a.InsertedAt.Equal(b.InsertedAt) {
		return a.InsertedAt.After(b.InsertedAt)
	}
	return a.ID > b.ID
}

func matches(d Details, term string) bool {
	fields := []string{d.ContactPhoneNumber}
	if d.ContactName != nil {
		fields = append(fields, *d.ContactName)
	}
	if d.DestinationNumber != nil {
		fields = append(fields, *d.DestinationNumber)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
