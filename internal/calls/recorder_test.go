package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonebook/internal/contacts"
	"phonebook/internal/routing"
)

type capturePublisher struct {
	got []Details
	err error
}

func (p *capturePublisher) Publish(ctx context.Context, d Details) error {
	p.got = append(p.got, d)
	return p.err
}

func strp(s string) *string { return &s }

func seedContact(t *testing.T, store *contacts.MemoryStore, phone string, name *string, action routing.Action) contacts.Contact {
	t.Helper()
	c, err := store.Add(context.Background(), contacts.AddRequest{PhoneNumber: phone, Name: name, Action: action})
	require.NoError(t, err)
	return c
}

func TestRecorder_CapturesActionAndPublishes(t *testing.T) {
	cs := contacts.NewMemoryStore()
	c := seedContact(t, cs, "0412", strp("Carl"), routing.ActionVoiceMail)
	pub := &capturePublisher{}
	rec := NewRecorder(NewMemoryStore(cs), pub)

	d, err := rec.Record(context.Background(), c, "0412", "100")
	require.NoError(t, err)
	assert.Equal(t, routing.ActionVoiceMail, d.Action)
	assert.Equal(t, c.ID, d.ContactID)
	assert.Equal(t, int64(1), d.NumberCalls)
	require.NotNil(t, d.DestinationNumber)
	assert.Equal(t, "100", *d.DestinationNumber)

	require.Len(t, pub.got, 1)
	assert.Equal(t, d, pub.got[0])
}

func TestRecorder_PublishFailureKeepsCall(t *testing.T) {
	cs := contacts.NewMemoryStore()
	c := seedContact(t, cs, "0412", nil, routing.ActionAllow)
	store := NewMemoryStore(cs)
	rec := NewRecorder(store, &capturePublisher{err: errors.New("nobody listening")})

	d, err := rec.Record(context.Background(), c, "0412", "")
	require.NoError(t, err)
	assert.Nil(t, d.DestinationNumber)

	page, err := store.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestRecorder_PastCallsKeepTheirAction(t *testing.T) {
	cs := contacts.NewMemoryStore()
	c := seedContact(t, cs, "0412", strp("Carl"), routing.ActionAllow)
	store := NewMemoryStore(cs)
	rec := NewRecorder(store, nil)

	first, err := rec.Record(context.Background(), c, "0412", "100")
	require.NoError(t, err)

	_, err = cs.Update(context.Background(), contacts.UpdateRequest{ID: c.ID, Name: c.Name, Action: routing.ActionVoiceMail})
	require.NoError(t, err)

	d, err := store.GetDetails(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, routing.ActionAllow, d.Action)
	assert.Equal(t, routing.ActionVoiceMail, d.ContactAction)
}

func TestMemoryStore_ListNewestFirstAndScoped(t *testing.T) {
	cs := contacts.NewMemoryStore()
	a := seedContact(t, cs, "01", strp("Ann"), routing.ActionAllow)
	b := seedContact(t, cs, "02", strp("Bob"), routing.ActionAllow)

	store := NewMemoryStore(cs)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.Now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	for _, c := range []contacts.Contact{a, b, a, a} {
		_, err := store.Insert(context.Background(), NewCall{Action: c.Action, ContactID: c.ID, PhoneNumber: c.PhoneNumber})
		require.NoError(t, err)
	}

	var ids []int64
	req := ListRequest{Limit: 2, ContactID: &a.ID}
	for {
		page, err := store.List(context.Background(), req)
		require.NoError(t, err)
		for _, d := range page.Items {
			ids = append(ids, d.ID)
		}
		if page.NextKey == nil {
			break
		}
		req.AfterKey = page.NextKey
	}
	assert.Equal(t, []int64{4, 3, 1}, ids)

	page, err := store.List(context.Background(), ListRequest{Search: "bob"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ContactID)
}
