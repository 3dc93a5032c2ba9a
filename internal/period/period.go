// Package period resolves the active aggregation window for the
// daily/weekly/monthly filter modes.
//
// All ranges are half-open [Start, End). Weeks start on Sunday; the
// Monday-adjusted variant that existed in earlier clients is considered
// a defect and is not supported.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// ErrInvalidPeriod marks an unresolvable month/filter combination.
// Callers must surface it to the user and must not silently default.
var ErrInvalidPeriod = errors.New("invalid period")

// Range is a half-open interval of instants.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the half-open range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the length of the range in calendar days.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24 + 0.5)
}

// Day resolves the calendar day containing now.
func Day(now time.Time) Range {
	start := midnight(now)
	return Range{Start: start, End: start.AddDate(0, 0, 1)}
}

// Week resolves the Sunday-to-Sunday week containing now.
func Week(now time.Time) Range {
	start := midnight(now).AddDate(0, 0, -int(now.Weekday()))
	return Range{Start: start, End: start.AddDate(0, 0, 7)}
}

// Month resolves the given calendar month.
func Month(year int, month time.Month, loc *time.Location) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

// MonthByName resolves a month given by its English name ("January",
// case-insensitive, three-letter abbreviations accepted). An unknown
// name fails with ErrInvalidPeriod.
func MonthByName(year int, name string, loc *time.Location) (Range, error) {
	m, err := parseMonthName(name)
	if err != nil {
		return Range{}, err
	}
	return Month(year, m, loc), nil
}

// Resolve computes the active window for a filter frequency relative to
// now. Monthly resolves the month containing now; use Month or
// MonthByName to target a specific one.
func Resolve(now time.Time, mode core.Frequency) (Range, error) {
	switch mode {
	case core.Daily:
		return Day(now), nil
	case core.Weekly:
		return Week(now), nil
	case core.Monthly:
		return Month(now.Year(), now.Month(), now.Location()), nil
	default:
		return Range{}, fmt.Errorf("%w: unknown filter mode %q", ErrInvalidPeriod, mode)
	}
}

func parseMonthName(name string) (time.Month, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, fmt.Errorf("%w: empty month name", ErrInvalidPeriod)
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if s == full || s == full[:3] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown month %q", ErrInvalidPeriod, name)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
