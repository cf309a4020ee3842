/*
calendar.go - Date type and calendar materialization

PURPOSE:
  Expands a requested date range into the ordered, finite sequence of
  calendar days the aggregator evaluates. Two expansion modes exist:

    Materialize:       inclusive [start, end] - tours and slot queries
    MaterializeNights: half-open [checkIn, checkOut) - lodging stays

  A stay with check_in=2025-06-01, check_out=2025-06-04 occupies the
  nights of 06-01, 06-02 and 06-03. Night 06-04 belongs to the next
  guest.

NO SIDE EFFECTS:
  Materialization is pure. Callers may restart or re-run it freely; the
  same inputs always produce the same sequence.

BOUNDS:
  Config.MaxRangeDays caps the span of one expansion so a malformed query
  cannot fan out into an unbounded store scan.

SEE ALSO:
  - capacity.go: consumes the materialized days
  - availability.go: chooses the expansion mode per resource kind
*/
package inventory

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day, independent of wall-clock time
// =============================================================================

// Date is a calendar day. It deliberately carries no location: the owning
// resource's timezone decides where the day's boundaries fall.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// Normalize through time.Date so June 31 becomes July 1.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates a point in time to the calendar day it falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	lt := t.In(loc)
	return Date{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrValidation, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Time returns midnight of the day in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	t := d.Time(time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) After(other Date) bool { return other.Before(d) }

func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string { return d.Time(time.UTC).Format("2006-01-02") }

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b Date) int {
	return int(b.Time(time.UTC).Sub(a.Time(time.UTC)).Hours() / 24)
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start Date
	End   Date
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

// Materialize expands [start, end] inclusive into ordered days.
// Fails with ErrInvalidRange when end < start or the span exceeds
// Config.MaxRangeDays.
func (c Config) Materialize(start, end Date) ([]Date, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, end, start)
	}
	span := DaysBetween(start, end) + 1
	if span > c.MaxRangeDays {
		return nil, fmt.Errorf("%w: %d days exceeds maximum of %d", ErrInvalidRange, span, c.MaxRangeDays)
	}
	days := make([]Date, 0, span)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days, nil
}

// MaterializeNights expands a stay into its occupied nights: the half-open
// interval [checkIn, checkOut). A same-day check-in/check-out has no
// nights and is rejected as an invalid range.
func (c Config) MaterializeNights(checkIn, checkOut Date) ([]Date, error) {
	if !checkIn.Before(checkOut) {
		return nil, fmt.Errorf("%w: check-out %s must be after check-in %s", ErrInvalidRange, checkOut, checkIn)
	}
	return c.Materialize(checkIn, checkOut.AddDays(-1))
}
