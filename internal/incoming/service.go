package incoming

import (
	"context"

	"phonebook/internal/calls"
	"phonebook/internal/contacts"
	"phonebook/internal/routing"
	"phonebook/pkg/logger"
)

// Request is what the PBX posts for every incoming call.
type Request struct {
	PhoneNumber       string `json:"phone_number" binding:"required"`
	DestinationNumber string `json:"destination_number"`
}

// Service handles an incoming call end to end: find or create the caller,
// record the call, then queue a directory reconciliation for the caller.
type Service struct {
	resolver *contacts.Resolver
	recorder *calls.Recorder
	sync     contacts.DirectorySync
}

func NewService(resolver *contacts.Resolver, recorder *calls.Recorder, sync contacts.DirectorySync) *Service {
	return &Service{resolver: resolver, recorder: recorder, sync: sync}
}

// Handle returns the recorded call. Only storage errors from resolving the
// contact or recording the call are returned.
func (s *Service) Handle(ctx context.Context, req Request) (calls.Details, error) {
	phone, err := routing.ValidatePhoneNumber(req.PhoneNumber)
	if err != nil {
		return calls.Details{}, err
	}

	c, created, err := s.resolver.ResolveOrCreate(ctx, phone)
	if err != nil {
		return calls.Details{}, err
	}

	d, err := s.recorder.Record(ctx, c, phone, req.DestinationNumber)
	if err != nil {
		return calls.Details{}, err
	}

	logger.From(ctx).Info("incoming call",
		"phone_call_id", d.ID,
		"contact_id", c.ID,
		"contact_created", created,
		"action", d.Action,
	)

	if s.sync != nil {
		s.sync.Enqueue(ctx, c)
	}
	return d, nil
}
