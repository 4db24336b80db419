package directory

import (
	"errors"
	"strings"

	"phonebook/internal/contacts"
	"phonebook/internal/routing"
)

// AnonymousNumber is what the PBX reports for withheld caller IDs.
const AnonymousNumber = "anonymous"

// ErrTooManyResults means the directory holds more than one entry for a phone
// number. Uniqueness must be enforced by whoever manages the directory.
var ErrTooManyResults = errors.New("directory: more than one entry for phone number")

// Includable reports whether c should be mirrored into the directory.
func Includable(c contacts.Contact) bool {
	return c.Name != nil && c.PhoneNumber != AnonymousNumber && c.Action == routing.ActionAllow
}

// Entry is the directory view of a contact.
type Entry struct {
	DN              string
	CN              string
	SN              string
	TelephoneNumber string
}

// EntryDN is the DN used for new entries: telephoneNumber=<phone>,<base>.
func EntryDN(phone, baseDN string) string {
	return "telephoneNumber=" + escapeDNValue(phone) + "," + baseDN
}

// escapeDNValue escapes an attribute value for use in a DN (RFC 4514).
func escapeDNValue(v string) string {
	if v == "" {
		return v
	}
	var b strings.Builder
	for i, r := range v {
		switch {
		case r == ',' || r == '+' || r == '"' || r == '\\' || r == '<' || r == '>' || r == ';' || r == '=':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '#' && i == 0:
			b.WriteString(`\#`)
		case r == ' ' && (i == 0 || i == len(v)-1):
			b.WriteString(`\ `)
		case r == 0:
			b.WriteString(`\00`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// samePhoneNumber compares the way the telephoneNumberMatch rule does:
// spaces and hyphens are insignificant.
func samePhoneNumber(a, b string) bool {
	return stripPhoneInsignificant(a) == stripPhoneInsignificant(b)
}

func stripPhoneInsignificant(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}
