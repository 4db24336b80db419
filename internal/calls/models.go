package calls

import (
	"time"

	"phonebook/internal/routing"
)

// PhoneCall is an immutable record of one incoming call.
//
// Action is copied from the contact at call time. Later contact edits never
// rewrite past calls.
type PhoneCall struct {
	ID                int64          `json:"id"`
	Action            routing.Action `json:"action"`
	ContactID         int64          `json:"contact_id"`
	PhoneNumber       string         `json:"phone_number"`
	DestinationNumber *string        `json:"destination_number"`
	InsertedAt        time.Time      `json:"inserted_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Details is a call joined with its contact's current fields and call count.
// It is what the API returns and what live subscribers receive.
type Details struct {
	PhoneCall
	ContactName        *string        `json:"contact_name"`
	ContactPhoneNumber string         `json:"contact_phone_number"`
	ContactAction      routing.Action `json:"contact_action"`
	ContactComments    *string        `json:"contact_comments"`
	NumberCalls        int64          `json:"number_calls"`
}

// Key is the keyset cursor for call listings: (inserted_at, id) descending.
type Key struct {
	InsertedAt time.Time `json:"inserted_at"`
	ID         int64     `json:"id"`
}

func (d Details) Key() Key {
	return Key{InsertedAt: d.InsertedAt, ID: d.ID}
}

// NewCall is the input to Repository.Insert.
type NewCall struct {
	Action            routing.Action
	ContactID         int64
	PhoneNumber       string
	DestinationNumber *string
}

// ListRequest asks for one page of calls, newest first.
// ContactID optionally scopes the listing to one contact.
type ListRequest struct {
	Search    string
	AfterKey  *Key
	Limit     int
	ContactID *int64
}
