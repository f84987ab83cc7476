package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month. Its String form is the canonical month key used
// to join payments and expenses, e.g. "March 2025".
type Month struct {
	Year  int
	Month time.Month
}

// English month names are spelled out here rather than taken from any
// locale-aware formatter so that keys never change with the host locale.
var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthOf returns the month containing t (in t's location).
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// FormatMonth returns the canonical month key for t.
func FormatMonth(t time.Time) string {
	return MonthOf(t).String()
}

// String renders the canonical "<MonthName> <Year>" key.
func (m Month) String() string {
	if m.Month < time.January || m.Month > time.December {
		return ""
	}
	return monthNames[m.Month-1] + " " + strconv.Itoa(m.Year)
}

// IsZero reports whether m is the zero month.
func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Add moves m by n months (negative n moves backwards).
func (m Month) Add(n int) Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return MonthOf(t)
}

// Next returns the following month.
func (m Month) Next() Month { return m.Add(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.Add(-1) }

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls within the month (UTC).
func (m Month) Contains(t time.Time) bool {
	return MonthOf(t.UTC()) == m
}

// ParseMonth parses a canonical month key. Matching of the month name is case
// insensitive; surrounding whitespace is ignored.
func ParseMonth(key string) (Month, error) {
	fields := strings.Fields(key)
	if len(fields) != 2 {
		return Month{}, fmt.Errorf("invalid month key %q", key)
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 1 {
		return Month{}, fmt.Errorf("invalid month key %q: bad year", key)
	}
	for i, name := range monthNames {
		if strings.EqualFold(name, fields[0]) {
			return Month{Year: year, Month: time.Month(i + 1)}, nil
		}
	}
	return Month{}, fmt.Errorf("invalid month key %q: unknown month", key)
}

// CanonicalMonth normalises a user-supplied month key to its canonical form.
func CanonicalMonth(key string) (string, error) {
	m, err := ParseMonth(key)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}
