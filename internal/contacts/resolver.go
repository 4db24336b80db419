package contacts

import (
	"context"
	"fmt"

	"phonebook/internal/routing"
)

// RuleSource yields the default rules in evaluation order.
type RuleSource interface {
	List(ctx context.Context) (routing.Rules, error)
}

// Finder is the subset of a contact store the Resolver needs.
type Finder interface {
	GetByPhoneNumber(ctx context.Context, phone string) (Contact, bool, error)
	Add(ctx context.Context, req AddRequest) (Contact, error)
}

// Resolver maps an incoming phone number to a contact, creating one on first
// sight.
//
// The lookup and the insert are not atomic. Two simultaneous first calls from
// the same number can both miss and create two contacts; the schema has no
// unique constraint on phone_number to arbitrate. GetByPhoneNumber always
// returns the oldest duplicate, so later calls converge on one row.
type Resolver struct {
	Contacts Finder
	Rules    RuleSource
}

func NewResolver(contacts Finder, rules RuleSource) *Resolver {
	return &Resolver{Contacts: contacts, Rules: rules}
}

// ResolveOrCreate returns the existing contact for phone unchanged, or
// creates one named and routed by the first matching default rule. With no
// matching rule the new contact is unnamed and allowed.
func (r *Resolver) ResolveOrCreate(ctx context.Context, phone string) (Contact, bool, error) {
	c, ok, err := r.Contacts.GetByPhoneNumber(ctx, phone)
	if err != nil {
		return Contact{}, false, err
	}
	if ok {
		return c, false, nil
	}

	req := AddRequest{PhoneNumber: phone, Action: routing.ActionAllow}
	if r.Rules != nil {
		rules, err := r.Rules.List(ctx)
		if err != nil {
			return Contact{}, false, fmt.Errorf("load default rules: %w", err)
		}
		if rule, ok := rules.Match(phone); ok {
			name := rule.Name
			req.Name = &name
			req.Action = rule.Action
		}
	}

	c, err = r.Contacts.Add(ctx, req)
	if err != nil {
		return Contact{}, false, err
	}
	contactsCreated.WithLabelValues(SourceIncoming).Inc()
	return c, true, nil
}
