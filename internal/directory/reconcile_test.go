package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonebook/internal/contacts"
	"phonebook/internal/routing"
)

const baseDN = "ou=phonebook,dc=example,dc=org"

func strp(s string) *string { return &s }

func carl() contacts.Contact {
	return contacts.Contact{ID: 1, PhoneNumber: "0400000000", Name: strp("Carl"), Action: routing.ActionAllow}
}

func TestIncludable(t *testing.T) {
	c := carl()
	assert.True(t, Includable(c))

	noName := c
	noName.Name = nil
	assert.False(t, Includable(noName))

	anon := c
	anon.PhoneNumber = "anonymous"
	assert.False(t, Includable(anon))

	vm := c
	vm.Action = routing.ActionVoiceMail
	assert.False(t, Includable(vm))
}

func TestReconcile_CreatesEntryForNewIncludableContact(t *testing.T) {
	dir := newFakeDirectory()
	r := NewReconciler(dir, baseDN)

	out, err := r.Reconcile(context.Background(), carl())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, out)

	entries := dir.snapshot()
	e, ok := entries["telephoneNumber=0400000000,"+baseDN]
	require.True(t, ok, "entries: %v", entries)
	assert.Equal(t, []string{"Carl"}, e["cn"])
	assert.Equal(t, []string{"Carl"}, e["sn"])
	assert.Equal(t, []string{"0400000000"}, e["telephoneNumber"])
	assert.Equal(t, []string{"person"}, e["objectClass"])
	assert.Equal(t, 1, dir.borrows)
}

func TestReconcile_VoicemailDeletesEntry(t *testing.T) {
	dir := newFakeDirectory()
	r := NewReconciler(dir, baseDN)
	_, err := r.Reconcile(context.Background(), carl())
	require.NoError(t, err)

	c := carl()
	c.Action = routing.ActionVoiceMail
	out, err := r.Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, out)
	assert.Empty(t, dir.snapshot())
}

func TestReconcile_RenameUpdatesExistingEntry(t *testing.T) {
	dir := newFakeDirectory()
	dn := "uid=old,ou=people," + baseDN
	dir.put(dn, map[string][]string{"cn": {"Old"}, "sn": {"Old"}, "telephoneNumber": {"0400000000"}})

	out, err := NewReconciler(dir, baseDN).Reconcile(context.Background(), carl())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	e := dir.snapshot()[dn]
	assert.Equal(t, []string{"Carl"}, e["cn"])
	assert.Equal(t, []string{"Carl"}, e["sn"])
}

func TestReconcile_RenameKeepsTelephoneNumberRDN(t *testing.T) {
	dir := newFakeDirectory()
	dn := EntryDN("0400 000 000", baseDN)
	dir.put(dn, map[string][]string{"cn": {"Old"}, "sn": {"Old"}, "telephoneNumber": {"0400 000 000"}})

	out, err := NewReconciler(dir, baseDN).Reconcile(context.Background(), carl())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	e := dir.snapshot()[dn]
	assert.Equal(t, []string{"Carl"}, e["cn"])
	assert.Equal(t, []string{"0400 000 000"}, e["telephoneNumber"])
}

func TestReconcile_EquivalentNumberIsUnchanged(t *testing.T) {
	dir := newFakeDirectory()
	dir.put(EntryDN("0400-000-000", baseDN), map[string][]string{"cn": {"Carl"}, "sn": {"Carl"}, "telephoneNumber": {"0400-000-000"}})

	out, err := NewReconciler(dir, baseDN).Reconcile(context.Background(), carl())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
	assert.Empty(t, dir.ops)
}

func TestReconciler_Check(t *testing.T) {
	dir := newFakeDirectory()
	r := NewReconciler(dir, baseDN)
	require.NoError(t, r.Check(context.Background()))
	assert.Equal(t, 1, dir.borrows)

	dir.failOn = "search"
	assert.Error(t, r.Check(context.Background()))
}

func TestReconcile_NotIncludableAndAbsentIsNoop(t *testing.T) {
	dir := newFakeDirectory()
	c := carl()
	c.Name = nil

	out, err := NewReconciler(dir, baseDN).Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.Empty(t, dir.ops)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	dir := newFakeDirectory()
	r := NewReconciler(dir, baseDN)

	_, err := r.Reconcile(context.Background(), carl())
	require.NoError(t, err)
	once := dir.snapshot()

	out, err := r.Reconcile(context.Background(), carl())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
	assert.Equal(t, once, dir.snapshot())
	assert.Equal(t, []string{"add"}, dir.ops)
}

func TestReconcile_TooManyResults(t *testing.T) {
	dir := newFakeDirectory()
	dir.put("cn=a,"+baseDN, map[string][]string{"telephoneNumber": {"0400000000"}})
	dir.put("cn=b,"+baseDN, map[string][]string{"telephoneNumber": {"0400000000"}})

	out, err := NewReconciler(dir, baseDN).Reconcile(context.Background(), carl())
	assert.ErrorIs(t, err, ErrTooManyResults)
	assert.Equal(t, OutcomeFailed, out)
	assert.Empty(t, dir.ops)
}

func TestEntryDN_EscapesSpecialCharacters(t *testing.T) {
	assert.Equal(t, "telephoneNumber=0400000000,"+baseDN, EntryDN("0400000000", baseDN))
	assert.Equal(t, `telephoneNumber=\+61\,4,`+baseDN, EntryDN("+61,4", baseDN))
	assert.Equal(t, `telephoneNumber=\#1,`+baseDN, EntryDN("#1", baseDN))
}
