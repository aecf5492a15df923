// Package daykey maps instants to calendar-day keys. It is the only place in
// the module that decides where one day ends and the next begins; quota,
// history, streak and chart code all go through a Convention.
package daykey

import (
	"time"
)

// Layout is the key format. Keys are ISO dates, so distinct calendar days
// never collide.
const Layout = "2006-01-02"

// Convention fixes the timezone used to derive day keys.
type Convention struct {
	loc *time.Location
}

// New returns a Convention for loc; nil means UTC.
func New(loc *time.Location) Convention {
	if loc == nil {
		loc = time.UTC
	}
	return Convention{loc: loc}
}

// Location returns the convention's timezone.
func (c Convention) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Key returns the calendar day containing t.
func (c Convention) Key(t time.Time) string {
	return t.In(c.Location()).Format(Layout)
}

// DaysBetween returns the number of calendar days from one key to another
// (to - from). ok is false when either key is malformed.
//
// Both keys are parsed as civil dates at UTC midnight, so the difference is
// always a whole number of days regardless of DST in the convention's zone.
func DaysBetween(from, to string) (days int, ok bool) {
	f, err := time.Parse(Layout, from)
	if err != nil {
		return 0, false
	}
	t, err := time.Parse(Layout, to)
	if err != nil {
		return 0, false
	}
	return int(t.Sub(f).Hours() / 24), true
}

// Shift returns the key n calendar days after key (n may be negative).
func Shift(key string, n int) (string, bool) {
	d, err := time.Parse(Layout, key)
	if err != nil {
		return "", false
	}
	return d.AddDate(0, 0, n).Format(Layout), true
}

// Weekday returns the day of week for key.
func Weekday(key string) (time.Weekday, bool) {
	d, err := time.Parse(Layout, key)
	if err != nil {
		return time.Sunday, false
	}
	return d.Weekday(), true
}
