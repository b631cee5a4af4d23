package book

import (
	"strings"
	"time"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// Book owns the collection of Records, keyed by name text. Iteration follows
// insertion order; replacing an existing record keeps its original position.
//
// The Book is single-owner and not safe for concurrent mutation. The command
// loop is its only caller; anything publishing data to other goroutines
// (e.g. the calendar server) works on rendered snapshots, never on the Book.
type Book struct {
	records map[string]*Record
	order   []string
	clock   Clock
}

// New creates an empty Book. A nil clock falls back to the real time source.
func New(clock Clock) *Book {
	if clock == nil {
		clock = RealClock{}
	}
	return &Book{
		records: make(map[string]*Record),
		clock:   clock,
	}
}

// AddRecord inserts or replaces the entry keyed by the record's name text.
// An existing record with the same name is replaced wholesale, no merging.
func (b *Book) AddRecord(r *Record) {
	key := r.Name()
	if _, ok := b.records[key]; !ok {
		b.order = append(b.order, key)
	}
	b.records[key] = r
}

// Find returns the record for an exact, case-sensitive name match.
func (b *Book) Find(name string) (*Record, bool) {
	r, ok := b.records[name]
	return r, ok
}

// Delete removes the entry for name. Returns whether a removal occurred.
func (b *Book) Delete(name string) bool {
	if _, ok := b.records[name]; !ok {
		return false
	}
	delete(b.records, name)
	for i, key := range b.order {
		if key == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of records.
func (b *Book) Len() int { return len(b.records) }

// Records returns all records in insertion order.
func (b *Book) Records() []*Record {
	out := make([]*Record, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.records[key])
	}
	return out
}

// UpcomingBirthdays returns the names of records whose birthday anniversary
// falls within the half-open window [today, today+7d), comparing calendar
// dates in the clock's location. "Today" is the clock's date with the time
// of day discarded, so a birthday on the current day is always included.
//
// The anniversary is the birthday with its year replaced by the current
// year; Go's date normalization turns Feb 29 into Mar 1 in non-leap years,
// which is the deliberate leapling policy. Anniversaries are not projected
// into the next year, so a window spanning Dec 31 does not pick up
// early-January birthdays.
func (b *Book) UpcomingBirthdays() []string {
	now := b.clock.Now()
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := today.AddDate(0, 0, config.UpcomingWindowDays)

	var names []string
	for _, key := range b.order {
		r := b.records[key]
		bd, ok := r.Birthday()
		if !ok {
			continue
		}
		anniversary := time.Date(today.Year(), bd.Date().Month(), bd.Date().Day(), 0, 0, 0, 0, loc)
		if !anniversary.Before(today) && anniversary.Before(end) {
			names = append(names, key)
		}
	}
	return names
}

// NextOccurrence determines the next anniversary of birth relative to now:
// the anniversary in the current year, or in the next year when that date
// has already passed. A birthday falling on the current day counts as the
// next occurrence. Used for calendar event placement.
func NextOccurrence(now time.Time, birth time.Time) time.Time {
	loc := now.Location()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	candidate := time.Date(now.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(todayStart) {
		candidate = time.Date(now.Year()+1, birth.Month(), birth.Day(), 0, 0, 0, 0, loc)
	}
	return candidate
}

// String renders every record's display string, one per line, in insertion order.
func (b *Book) String() string {
	lines := make([]string, 0, len(b.order))
	for _, key := range b.order {
		lines = append(lines, b.records[key].String())
	}
	return strings.Join(lines, "\n")
}
