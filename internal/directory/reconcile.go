package directory

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"phonebook/internal/contacts"
)

// Conn is the subset of *ldap.Conn used for reconciliation.
type Conn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
}

// Connector lends a connection for the duration of fn.
type Connector interface {
	WithConn(ctx context.Context, fn func(Conn) error) error
}

// Outcome describes what a reconciliation did to the directory.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Reconciler brings one directory entry in line with one contact.
type Reconciler struct {
	conns  Connector
	baseDN string
}

func NewReconciler(conns Connector, baseDN string) *Reconciler {
	return &Reconciler{conns: conns, baseDN: baseDN}
}

// Reconcile applies the decision table:
//
//	entry, includable     -> set cn/sn/telephoneNumber
//	entry, not includable -> delete the entry
//	none, includable      -> add a person entry
//	none, not includable  -> nothing
//
// The lookup and the change share one connection. Running it twice for the
// same contact leaves the directory as running it once.
func (r *Reconciler) Reconcile(ctx context.Context, c contacts.Contact) (Outcome, error) {
	out := OutcomeSkipped
	err := r.conns.WithConn(ctx, func(conn Conn) error {
		existing, found, err := r.lookup(conn, c.PhoneNumber)
		if err != nil {
			return err
		}

		switch {
		case found && Includable(c):
			name := *c.Name
			// telephoneNumber may be the entry's RDN, which servers refuse to
			// replace. The search already matched it, so it only changes when
			// it differs beyond what telephoneNumberMatch ignores.
			phoneChanged := !samePhoneNumber(existing.TelephoneNumber, c.PhoneNumber)
			if existing.CN == name && existing.SN == name && !phoneChanged {
				out = OutcomeUnchanged
				return nil
			}
			req := ldap.NewModifyRequest(existing.DN, nil)
			req.Replace("cn", []string{name})
			req.Replace("sn", []string{name})
			if phoneChanged {
				req.Replace("telephoneNumber", []string{c.PhoneNumber})
			}
			if err := conn.Modify(req); err != nil {
				return fmt.Errorf("modify %s: %w", existing.DN, err)
			}
			out = OutcomeUpdated

		case found:
			if err := conn.Del(ldap.NewDelRequest(existing.DN, nil)); err != nil {
				return fmt.Errorf("delete %s: %w", existing.DN, err)
			}
			out = OutcomeDeleted

		case Includable(c):
			dn := EntryDN(c.PhoneNumber, r.baseDN)
			req := ldap.NewAddRequest(dn, nil)
			req.Attribute("objectClass", []string{"person"})
			req.Attribute("cn", []string{*c.Name})
			req.Attribute("sn", []string{*c.Name})
			req.Attribute("telephoneNumber", []string{c.PhoneNumber})
			if err := conn.Add(req); err != nil {
				return fmt.Errorf("add %s: %w", dn, err)
			}
			out = OutcomeCreated
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return out, nil
}

// Check runs a base-object search on the base DN through the pool.
func (r *Reconciler) Check(ctx context.Context) error {
	return r.conns.WithConn(ctx, func(conn Conn) error {
		req := ldap.NewSearchRequest(
			r.baseDN,
			ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
			"(objectClass=*)",
			[]string{"1.1"},
			nil,
		)
		if _, err := conn.Search(req); err != nil {
			return fmt.Errorf("search %s: %w", r.baseDN, err)
		}
		return nil
	})
}

func (r *Reconciler) lookup(conn Conn, phone string) (Entry, bool, error) {
	req := ldap.NewSearchRequest(
		r.baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(telephoneNumber=%s)", ldap.EscapeFilter(phone)),
		[]string{"cn", "sn", "telephoneNumber"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return Entry{}, false, fmt.Errorf("search %s: %w", phone, err)
	}
	switch len(res.Entries) {
	case 0:
		return Entry{}, false, nil
	case 1:
		e := res.Entries[0]
		return Entry{
			DN:              e.DN,
			CN:              e.GetAttributeValue("cn"),
			SN:              e.GetAttributeValue("sn"),
			TelephoneNumber: e.GetAttributeValue("telephoneNumber"),
		}, true, nil
	default:
		return Entry{}, false, ErrTooManyResults
	}
}
