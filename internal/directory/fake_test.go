package directory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

// fakeDirectory is an in-memory LDAP server keyed by DN.
type fakeDirectory struct {
	mu      sync.Mutex
	entries map[string]map[string][]string
	ops     []string
	borrows int
	failOn  string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{entries: map[string]map[string][]string{}}
}

func (f *fakeDirectory) WithConn(ctx context.Context, fn func(Conn) error) error {
	f.mu.Lock()
	f.borrows++
	f.mu.Unlock()
	return fn(f)
}

func (f *fakeDirectory) put(dn string, attrs map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[dn] = attrs
}

func (f *fakeDirectory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "search" {
		return nil, errors.New("search failed")
	}
	res := &ldap.SearchResult{}
	if req.Scope == ldap.ScopeBaseObject {
		return res, nil
	}
	phone := strings.TrimSuffix(strings.TrimPrefix(req.Filter, "(telephoneNumber="), ")")
	for dn, attrs := range f.entries {
		for _, v := range attrs["telephoneNumber"] {
			if samePhoneNumber(v, phone) {
				res.Entries = append(res.Entries, ldap.NewEntry(dn, attrs))
			}
		}
	}
	return res, nil
}

func (f *fakeDirectory) Add(req *ldap.AddRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "add")
	attrs := map[string][]string{}
	for _, a := range req.Attributes {
		attrs[a.Type] = a.Vals
	}
	f.entries[req.DN] = attrs
	return nil
}

func (f *fakeDirectory) Modify(req *ldap.ModifyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "modify")
	attrs, ok := f.entries[req.DN]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}
	for _, ch := range req.Changes {
		if strings.HasPrefix(req.DN, ch.Modification.Type+"=") {
			return ldap.NewError(ldap.LDAPResultNotAllowedOnRDN, errors.New("not allowed on RDN"))
		}
	}
	for _, ch := range req.Changes {
		attrs[ch.Modification.Type] = ch.Modification.Vals
	}
	return nil
}

func (f *fakeDirectory) Del(req *ldap.DelRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete")
	delete(f.entries, req.DN)
	return nil
}

func (f *fakeDirectory) snapshot() map[string]map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string][]string, len(f.entries))
	for dn, attrs := range f.entries {
		cp := make(map[string][]string, len(attrs))
		for k, v := range attrs {
			cp[k] = append([]string(nil), v...)
		}
		out[dn] = cp
	}
	return out
}
