package contacts

import (
	"context"
	"fmt"

	"phonebook/internal/audit"
	"phonebook/internal/query"
)

// Repository is the persistence contract for contacts.
// Store and MemoryStore both satisfy it.
type Repository interface {
	Finder
	Get(ctx context.Context, id int64) (Details, error)
	Update(ctx context.Context, req UpdateRequest) (Contact, error)
	Delete(ctx context.Context, id int64) (Contact, error)
	List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error)
}

// DirectorySync receives contacts whose directory entry may need to change.
// Enqueue must not block the caller.
type DirectorySync interface {
	Enqueue(ctx context.Context, c Contact)
}

// Service is the staff-facing contact API. Every successful write is
// followed by a directory reconciliation and an audit event; neither can
// fail the write.
type Service struct {
	repo  Repository
	sync  DirectorySync
	audit *audit.Service
}

func NewService(repo Repository, sync DirectorySync, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, sync: sync, audit: auditSvc}
}

func (s *Service) Get(ctx context.Context, id int64) (Details, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListRequest) (query.Page[Details, Key], error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Add(ctx context.Context, req AddRequest) (Contact, error) {
	c, err := s.repo.Add(ctx, req)
	if err != nil {
		return Contact{}, err
	}
	contactsCreated.WithLabelValues(SourceManual).Inc()
	s.enqueue(ctx, c)
	s.audit.Record(ctx, audit.EventContactCreated, "contact", c.ID, c.PhoneNumber)
	return c, nil
}

func (s *Service) Update(ctx context.Context, req UpdateRequest) (Contact, error) {
	c, err := s.repo.Update(ctx, req)
	if err != nil {
		return Contact{}, err
	}
	s.enqueue(ctx, c)
	s.audit.Record(ctx, audit.EventContactUpdated, "contact", c.ID, c.PhoneNumber)
	return c, nil
}

// Delete removes the contact. The directory entry for its phone number then
// follows whichever contact still holds that number, or is removed.
func (s *Service) Delete(ctx context.Context, id int64) (Contact, error) {
	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	s.enqueue(ctx, c)
	s.audit.Record(ctx, audit.EventContactDeleted, "contact", c.ID, fmt.Sprintf("deleted %s", c.PhoneNumber))
	return c, nil
}

func (s *Service) enqueue(ctx context.Context, c Contact) {
	if s.sync != nil {
		s.sync.Enqueue(ctx, c)
	}
}
