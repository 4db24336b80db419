package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"phonebook/internal/apperr"
	"phonebook/internal/query"
)

// MemoryStore is an in-memory contact store for tests and local development.
// It follows the same ordering, search and keyset rules as Store.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	contacts map[int64]Contact
	calls    map[int64]int64

	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: map[int64]Contact{}, calls: map[int64]int64{}, Now: time.Now}
}

// IncrementCalls bumps the derived call count of a contact.
func (m *MemoryStore) IncrementCalls(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
}

// Len reports how many contacts are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contacts)
}

func (m *MemoryStore) GetByPhoneNumber(ctx context.Context, phone string) (Contact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best Contact
	found := false
	for _, c := range m.contacts {
		if c.PhoneNumber != phone {
			continue
		}
		if !found || c.ID < best.ID {
			best, found = c, true
		}
	}
	return best, found, nil
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return Details{}, apperr.NotFound("Contact", id)
	}
	return Details{Contact: c, NumberCalls: m.calls[id]}, nil
}

func (m *MemoryStore) Add(ctx context.Context, req AddRequest) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.Now().UTC()
	c := Contact{
		ID:          m.nextID,
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Action:      req.Action,
		Comments:    req.Comments,
		InsertedAt:  now,
		UpdatedAt:   now,
	}
	m.contacts[c.ID] = c
	return c, nil
}

func (m *MemoryStore) Update(ctx context.Context, req UpdateRequest) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[req.ID]
	if !ok {
		return Contact{}, apperr.NotFound("Contact", req.ID)
	}
	c.Name, c.Action, c.Comments = req.Name, req.Action, req.Comments
	c.UpdatedAt = m.Now().UTC()
	m.contacts[c.ID] = c
	return c, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) (Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return Contact{}, apperr.NotFound("Contact", id)
	}
	if m.calls[id] > 0 {
		return Contact{}, ErrHasCalls
	}
	delete(m.contacts, id)
	return c, nil
}

func (m *MemoryStore) List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error) {
	limit := query.ClampLimit(req.Limit, query.DefaultLimit)
	term := strings.ToLower(strings.TrimSpace(req.Search))

	m.mu.Lock()
	all := make([]Details, 0, len(m.contacts))
	for _, c := range m.contacts {
		all = append(all, Details{Contact: c, NumberCalls: m.calls[c.ID]})
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return keyLess(all[i].Key(), all[j].Key()) })

	items := make([]Details, 0, limit)
	for _, d := range all {
		if term != "" && !matches(d.Contact, term) {
			continue
		}
		if req.AfterKey != nil && !keyLess(*req.AfterKey, d.Key()) {
			continue
		}
		items = append(items, d)
		if len(items) == limit {
			break
		}
	}
	return query.NewPage(items, limit, Details.Key), nil
}

func keyLess(a, b Key) bool {
	if a.PhoneNumber != b.PhoneNumber {
		return a.PhoneNumber < b.PhoneNumber
	}
	return a.ID < b.ID
}

func matches(c Contact, term string) bool {
	fields := []string{c.PhoneNumber}
	if c.Name != nil {
		fields = append(fields, *c.Name)
	}
	if c.Comments != nil {
		fields = append(fields, *c.Comments)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
