package book

import (
	"strings"
	"time"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// Name is the non-empty display name of a contact. Immutable once constructed.
type Name struct {
	value string
}

// NewName validates and wraps a contact name.
func NewName(value string) (Name, error) {
	if value == "" {
		return Name{}, &ValidationError{Key: config.TKeyErrNameRequired, Msg: config.ErrNameRequired}
	}
	return Name{value: value}, nil
}

func (n Name) String() string { return n.value }

// Phone is a validated phone number of exactly ten decimal digits.
type Phone struct {
	value string
}

// NewPhone validates and wraps a phone number.
func NewPhone(value string) (Phone, error) {
	if len(value) != config.PhoneDigits || !isDigits(value) {
		return Phone{}, &ValidationError{Key: config.TKeyErrPhoneDigits, Msg: config.ErrPhoneDigits}
	}
	return Phone{value: value}, nil
}

func (p Phone) String() string { return p.value }

// isDigits reports whether s consists solely of ASCII decimal digits.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Birthday is a validated calendar date. The time-of-day part is always
// midnight; only year, month and day are meaningful.
type Birthday struct {
	date time.Time
}

// NewBirthday parses a DD.MM.YYYY string into a Birthday.
// Impossible calendar dates (e.g. 31.02.1990) are rejected, not normalized.
func NewBirthday(value string) (Birthday, error) {
	t, err := time.Parse(config.DateLayoutDisplay, value)
	if err != nil {
		return Birthday{}, &ValidationError{Key: config.TKeyErrBirthdayFmt, Msg: config.ErrBirthdayFormat}
	}
	return Birthday{date: t}, nil
}

// BirthdayFromDate wraps an already-valid time value, keeping only its date part.
// Used by importers whose source formats were parsed elsewhere.
func BirthdayFromDate(t time.Time) Birthday {
	return Birthday{date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Date returns the underlying date value.
func (b Birthday) Date() time.Time { return b.date }

// String renders the birthday in the DD.MM.YYYY display format.
func (b Birthday) String() string { return b.date.Format(config.DateLayoutDisplay) }

// Record is one contact: a required immutable name, an ordered list of phone
// numbers (duplicates allowed, insertion order preserved) and an optional
// birthday. All mutation goes through methods so the validation gate holds.
type Record struct {
	name     Name
	phones   []Phone
	birthday *Birthday
}

// NewRecord creates a Record with no phones and no birthday.
func NewRecord(name string) (*Record, error) {
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	return &Record{name: n}, nil
}

// Name returns the contact's name text.
func (r *Record) Name() string { return r.name.String() }

// Phones returns the phone list in insertion order. The slice is a copy.
func (r *Record) Phones() []Phone {
	out := make([]Phone, len(r.phones))
	copy(out, r.phones)
	return out
}

// AddPhone validates number and appends it. Duplicates are permitted.
func (r *Record) AddPhone(number string) error {
	p, err := NewPhone(number)
	if err != nil {
		return err
	}
	r.phones = append(r.phones, p)
	return nil
}

// RemovePhone removes the first phone equal to number.
// Returns false when no phone matched; that is not an error.
func (r *Record) RemovePhone(number string) bool {
	for i, p := range r.phones {
		if p.value == number {
			r.phones = append(r.phones[:i], r.phones[i+1:]...)
			return true
		}
	}
	return false
}

// EditPhone replaces the first phone equal to oldNumber with newNumber.
// The replacement is validated before any lookup, so an invalid newNumber
// fails even when oldNumber is absent. Returns whether a phone was replaced.
func (r *Record) EditPhone(oldNumber, newNumber string) (bool, error) {
	p, err := NewPhone(newNumber)
	if err != nil {
		return false, err
	}
	for i := range r.phones {
		if r.phones[i].value == oldNumber {
			r.phones[i] = p
			return true, nil
		}
	}
	return false, nil
}

// FindPhone returns the first phone equal to number.
func (r *Record) FindPhone(number string) (Phone, bool) {
	for _, p := range r.phones {
		if p.value == number {
			return p, true
		}
	}
	return Phone{}, false
}

// SetBirthday parses value as DD.MM.YYYY and stores it, overwriting any
// previous birthday. A Record holds at most one birthday.
func (r *Record) SetBirthday(value string) error {
	b, err := NewBirthday(value)
	if err != nil {
		return err
	}
	r.birthday = &b
	return nil
}

// SetBirthdayDate stores an already-validated date. Importer path.
func (r *Record) SetBirthdayDate(t time.Time) {
	b := BirthdayFromDate(t)
	r.birthday = &b
}

// Birthday returns the stored birthday, if any.
func (r *Record) Birthday() (Birthday, bool) {
	if r.birthday == nil {
		return Birthday{}, false
	}
	return *r.birthday, true
}

// String renders the record for display:
//
//	Contact name: John, phones: 1234567890; 5555555555, birthday: 15.11.1990
//
// The birthday clause is present only when a birthday is set.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("Contact name: ")
	sb.WriteString(r.name.String())
	sb.WriteString(", phones: ")
	for i, p := range r.phones {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(p.value)
	}
	if r.birthday != nil {
		sb.WriteString(", birthday: ")
		sb.WriteString(r.birthday.String())
	}
	return sb.String()
}
