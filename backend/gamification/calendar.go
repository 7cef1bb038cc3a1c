package gamification

import (
	"fmt"
	"time"

	"github.com/savepoint/savepoint/lib/errs"
)

// CalendarDate is a calendar day with no time component. Comparing two of these
// compares year/month/day only, which is what "completed on the same day" means:
// two instants one second apart across midnight are different CalendarDates, and
// two instants 23 hours apart inside one day are the same one.
//
// All conversions in this package use UTC so the day boundary is consistent no
// matter which host evaluates it.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.UTC().Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// Today returns the current UTC calendar day.
func Today() CalendarDate {
	return DateOf(time.Now())
}

// Time returns the instant at UTC midnight of the day. This is the canonical
// persisted representation of a CalendarDate.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero value.
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Equal reports whether d and o are the same calendar day.
func (d CalendarDate) Equal(o CalendarDate) bool {
	return d == o
}

// Before reports whether d falls before o.
func (d CalendarDate) Before(o CalendarDate) bool {
	return d.Time().Before(o.Time())
}

// After reports whether d falls after o.
func (d CalendarDate) After(o CalendarDate) bool {
	return d.Time().After(o.Time())
}

// AddDays returns the day n days after d (n may be negative).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysBetween returns the whole number of days from a to b. It is positive when
// b is later than a. time.Time normalization in Time() makes this safe across
// month and year boundaries.
func DaysBetween(a, b CalendarDate) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// String formats the day as ISO 8601 (2006-01-02).
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses an ISO 8601 day string into a CalendarDate.
func ParseDate(s string) (CalendarDate, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: malformed date %q", errs.ErrInvalidDate, s)
	}
	return DateOf(t), nil
}
