package routing

import (
	"context"
	"sort"
	"sync"
	"time"

	"phonebook/internal/apperr"
)

// MemoryStore is an in-memory rule store for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rules  map[int64]DefaultRule
}

func NewMemoryStore(rules ...DefaultRule) *MemoryStore {
	m := &MemoryStore{rules: map[int64]DefaultRule{}}
	for _, r := range rules {
		if r.ID == 0 {
			m.nextID++
			r.ID = m.nextID
		} else if r.ID > m.nextID {
			m.nextID = r.ID
		}
		m.rules[r.ID] = r
	}
	return m
}

func (m *MemoryStore) List(ctx context.Context) (Rules, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Rules, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (DefaultRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return DefaultRule{}, apperr.NotFound("Default", id)
	}
	return r, nil
}

func (m *MemoryStore) Add(ctx context.Context, f RuleFields) (DefaultRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	r := DefaultRule{ID: m.nextID, Order: f.Order, Regexp: f.Regexp, Name: f.Name, Action: f.Action, InsertedAt: now, UpdatedAt: now}
	m.rules[r.ID] = r
	patternCache.reset()
	return r, nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, f RuleFields) (DefaultRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return DefaultRule{}, apperr.NotFound("Default", id)
	}
	r.Order, r.Regexp, r.Name, r.Action = f.Order, f.Regexp, f.Name, f.Action
	r.UpdatedAt = time.Now().UTC()
	m.rules[id] = r
	patternCache.reset()
	return r, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return apperr.NotFound("Default", id)
	}
	delete(m.rules, id)
	patternCache.reset()
	return nil
}
