package routing

import (
	"database/sql/driver"
	"fmt"
)

// Action is the disposition applied to a caller.
// Values are stored verbatim in the contacts, defaults and phone_calls tables.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionVoiceMail Action = "voicemail"
)

// ParseAction accepts the stored/wire form of an action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAllow, ActionVoiceMail:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

func (a Action) String() string { return string(a) }

func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Value implements driver.Valuer.
func (a Action) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("routing: invalid action %q", string(a))
	}
	return string(a), nil
}

// Scan implements sql.Scanner. Unknown stored values fall back to allow,
// matching how rows written by older tooling were always interpreted.
func (a *Action) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		s = ""
	default:
		return fmt.Errorf("routing: cannot scan %T into Action", src)
	}
	parsed, err := ParseAction(s)
	if err != nil {
		parsed = ActionAllow
	}
	*a = parsed
	return nil
}
