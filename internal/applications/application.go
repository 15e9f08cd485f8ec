// Package applications handles recruitment applications submitted from the
// main page and the notifications sent when one arrives.
package applications

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxNameLength       = 24
	MaxSettlementLength = 64
)

// Form field names.
const (
	FieldName       = "requester_name"
	FieldSettlement = "settlement"
	FieldPhone      = "phone_number"
)

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Application is one submitted request to be contacted by a recruiter.
type Application struct {
	ID            int64
	GUID          string
	RequesterName string
	Settlement    string
	Phone         string
	CreatedAt     time.Time
}

func (a *Application) String() string {
	return fmt.Sprintf("%s %s from %s", a.RequesterName, a.Phone, a.Settlement)
}

// FieldErrors maps form field names to a message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{FieldName, FieldSettlement, FieldPhone} {
		if msg, ok := e[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

// New validates the fields and returns an application with a fresh GUID.
func New(name, settlement, phone string, now time.Time) (*Application, error) {
	name = strings.TrimSpace(name)
	settlement = strings.TrimSpace(settlement)

	errs := FieldErrors{}
	switch {
	case name == "":
		errs[FieldName] = "required"
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs[FieldName] = fmt.Sprintf("at most %d characters", MaxNameLength)
	}
	switch {
	case settlement == "":
		errs[FieldSettlement] = "required"
	case utf8.RuneCountInString(settlement) > MaxSettlementLength:
		errs[FieldSettlement] = fmt.Sprintf("at most %d characters", MaxSettlementLength)
	}
	normalized, err := NormalizePhone(phone)
	if err != nil {
		errs[FieldPhone] = err.Error()
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &Application{
		GUID:          uuid.NewString(),
		RequesterName: name,
		Settlement:    settlement,
		Phone:         normalized,
		CreatedAt:     now.UTC(),
	}, nil
}

// FromForm builds an application from posted form values.
func FromForm(values url.Values, now time.Time) (*Application, error) {
	return New(values.Get(FieldName), values.Get(FieldSettlement), values.Get(FieldPhone), now)
}

// NormalizePhone strips formatting and returns the number in international
// format. A national number starting with 8 is read as a Russian +7 number.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("unexpected character %q", r)
		}
	}
	phone := b.String()
	if phone == "" {
		return "", fmt.Errorf("required")
	}
	if len(phone) == 11 && phone[0] == '8' {
		phone = "+7" + phone[1:]
	}
	if !strings.HasPrefix(phone, "+") && len(phone) == 11 && phone[0] == '7' {
		phone = "+" + phone
	}
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("not a valid international phone number")
	}
	return phone, nil
}
