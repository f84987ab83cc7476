package domain

import (
	"testing"
	"time"
)

func TestFormatMonthIsCanonical(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC), "March 2025"},
		{time.Date(2024, time.December, 31, 23, 0, 0, 0, ist), "December 2024"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "January 2026"},
	}
	for _, tc := range cases {
		if got := FormatMonth(tc.in); got != tc.want {
			t.Fatalf("FormatMonth(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseMonthRoundTrip(t *testing.T) {
	m, err := ParseMonth("  march   2025 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != (Month{Year: 2025, Month: time.March}) {
		t.Fatalf("unexpected month %+v", m)
	}
	if m.String() != "March 2025" {
		t.Fatalf("expected canonical key, got %q", m.String())
	}
	for _, bad := range []string{"", "March", "Mar 2025", "March twenty", "March 0", "2025 March extra"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMonthNavigation(t *testing.T) {
	jan := Month{Year: 2025, Month: time.January}
	if got := jan.Prev().String(); got != "December 2024" {
		t.Fatalf("prev: %q", got)
	}
	dec := Month{Year: 2024, Month: time.December}
	if got := dec.Next().String(); got != "January 2025" {
		t.Fatalf("next: %q", got)
	}
	if got := jan.Add(14).String(); got != "March 2026" {
		t.Fatalf("add: %q", got)
	}
	if !jan.Contains(time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("expected contains")
	}
	if (Month{}).String() != "" || !(Month{}).IsZero() {
		t.Fatalf("zero month should render empty")
	}
}

func TestCanonicalMonth(t *testing.T) {
	got, err := CanonicalMonth("FEBRUARY 2025")
	if err != nil || got != "February 2025" {
		t.Fatalf("got %q, %v", got, err)
	}
}
