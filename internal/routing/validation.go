package routing

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"phonebook/internal/apperr"
)

// FieldValue is a form field that accepts either a JSON string or a bare
// JSON number, so "order": 3 and "order": "3" both reach ValidateOrder.
type FieldValue string

func (f *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FieldValue(s)
		return nil
	}
	*f = FieldValue(b)
	return nil
}

func ValidateOrder(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperr.Invalid("Order cannot be empty")
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, apperr.Invalid("Invalid integer: %v", err)
	}
	return int32(n), nil
}

func ValidateRegexp(s string) (string, error) {
	if s == "" {
		return "", apperr.Invalid("Regexp cannot be empty")
	}
	if _, err := regexp.Compile(s); err != nil {
		return "", apperr.Invalid("Invalid regexp: %v", err)
	}
	return s, nil
}

func ValidateName(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", apperr.Invalid("Name cannot be empty")
	}
	return s, nil
}

func ValidatePhoneNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Invalid("Phone number cannot be empty")
	}
	return s, nil
}

func ValidateAction(s string) (Action, error) {
	a, err := ParseAction(strings.TrimSpace(s))
	if err != nil {
		return "", apperr.Invalid("Invalid action: %v", err)
	}
	return a, nil
}

// ValidateComments maps an empty comment to nil.
func ValidateComments(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// OptionalName maps an empty display name to nil.
func OptionalName(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// RuleInput is the raw admin form for adding or editing a default rule.
type RuleInput struct {
	Order  FieldValue `json:"order"`
	Regexp string     `json:"regexp"`
	Name   string     `json:"name"`
	Action string     `json:"action"`
}

// RuleFields is a validated RuleInput.
type RuleFields struct {
	Order  int32
	Regexp string
	Name   string
	Action Action
}

// Validate checks every field and reports the first failure.
func (in RuleInput) Validate() (RuleFields, error) {
	order, err := ValidateOrder(string(in.Order))
	if err != nil {
		return RuleFields{}, err
	}
	re, err := ValidateRegexp(in.Regexp)
	if err != nil {
		return RuleFields{}, err
	}
	name, err := ValidateName(in.Name)
	if err != nil {
		return RuleFields{}, err
	}
	action, err := ValidateAction(in.Action)
	if err != nil {
		return RuleFields{}, err
	}
	return RuleFields{Order: order, Regexp: re, Name: name, Action: action}, nil
}
