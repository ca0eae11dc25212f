// Package caldate provides timezone-naive calendar-day identities and
// inclusive day ranges. A Date compares by calendar day only; the wall
// clock and zone of whatever produced it are discarded.
package caldate

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// Date is a day identity in ISO YYYY-MM-DD form.
type Date struct {
	year  int
	month time.Month
	day   int
}

func New(year int, month time.Month, day int) Date {
	// Normalize through time.Date so e.g. Feb 30 becomes Mar 2.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Parse reads an ISO YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates a time.Time to its calendar day in its own location.
func DateOf(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Year() int        { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int         { return d.day }

func (d Date) String() string {
	return d.Time().Format(Layout)
}

// Time returns midnight UTC on the day. Only ordering and arithmetic
// should be derived from it, never a zone-sensitive comparison.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool  { return d == other }

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// FirstOfMonth returns the first day of the month containing d.
func (d Date) FirstOfMonth() Date {
	return Date{year: d.year, month: d.month, day: 1}
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.year == other.year && d.month == other.month
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Interval is an inclusive closed range of days. Start == End is a
// single blocked day.
type Interval struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (iv Interval) Valid() bool {
	return !iv.End.Before(iv.Start)
}

// Contains reports whether d falls within the interval, inclusive on
// both ends.
func (iv Interval) Contains(d Date) bool {
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// Len is the number of days covered, inclusive.
func (iv Interval) Len() int {
	if !iv.Valid() {
		return 0
	}
	return int(iv.End.Time().Sub(iv.Start.Time())/(24*time.Hour)) + 1
}

// Days enumerates every day in the interval in ascending order.
func (iv Interval) Days() []Date {
	if !iv.Valid() {
		return nil
	}
	out := make([]Date, 0, iv.Len())
	for d := iv.Start; !d.After(iv.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
