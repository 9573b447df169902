package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar date format used in keys, file names, and config.
const DateLayout = "2006-01-02"

// Span is the length of a date range, expressed either as a day count or as a
// fractional number of years. Exactly one of the two may be set.
type Span struct {
	Days  int
	Years float64
}

// DayCount resolves the span to a number of days. Years convert as
// round(years * 365).
func (s Span) DayCount() (int, error) {
	if s.Days != 0 && s.Years != 0 {
		return 0, errors.New("span: days and years are mutually exclusive")
	}
	n := s.Days
	if s.Years != 0 {
		n = int(math.Round(s.Years * 365))
	}
	if n <= 0 {
		return 0, fmt.Errorf("span: day count must be positive, got %d", n)
	}
	return n, nil
}

// DateRange returns days consecutive calendar dates starting at start and
// stepping backwards one day at a time. Dates are normalized to midnight UTC.
func DateRange(start time.Time, days int) []time.Time {
	if days <= 0 {
		return nil
	}
	anchor := Midnight(start)
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = anchor.AddDate(0, 0, -i)
	}
	return dates
}

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Yesterday returns the UTC calendar date before now.
func Yesterday(now time.Time) time.Time {
	return Midnight(now).AddDate(0, 0, -1)
}

// ParseDate parses a YYYY-MM-DD string into a midnight UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
