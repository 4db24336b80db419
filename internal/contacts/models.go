package contacts

import (
	"time"

	"phonebook/internal/routing"
)

// Contact is a caller known to the phone book.
//
// PhoneNumber is the identity used for matching incoming calls. Uniqueness is
// expected but not enforced by the schema; see Resolver.
type Contact struct {
	ID          int64          `json:"id"`
	PhoneNumber string         `json:"phone_number"`
	Name        *string        `json:"name"`
	Action      routing.Action `json:"action"`
	Comments    *string        `json:"comments"`
	InsertedAt  time.Time      `json:"inserted_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Details is a Contact plus its derived call count.
type Details struct {
	Contact
	NumberCalls int64 `json:"number_calls"`
}

// Key is the keyset cursor for contact listings: (phone_number, id) ascending.
type Key struct {
	PhoneNumber string `json:"phone_number"`
	ID          int64  `json:"id"`
}

func (d Details) Key() Key {
	return Key{PhoneNumber: d.PhoneNumber, ID: d.ID}
}

// AddRequest creates a contact.
type AddRequest struct {
	PhoneNumber string
	Name        *string
	Action      routing.Action
	Comments    *string
}

// UpdateRequest replaces the editable fields of a contact.
type UpdateRequest struct {
	ID       int64
	Name     *string
	Action   routing.Action
	Comments *string
}

// ListRequest asks for one page of contacts.
type ListRequest struct {
	Search   string
	AfterKey *Key
	Limit    int
}
