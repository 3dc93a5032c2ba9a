package period

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestDayRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 37, 12, 0, time.UTC)
	r := Day(now)

	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(want) {
		t.Fatalf("start = %v, want %v", r.Start, want)
	}
	if got := r.End.Sub(r.Start); got != 24*time.Hour {
		t.Fatalf("daily span = %v, want 24h", got)
	}

	// Idempotent: the same reference instant yields the identical range.
	again := Day(now)
	if !again.Start.Equal(r.Start) || !again.End.Equal(r.End) {
		t.Fatal("daily resolution not idempotent")
	}
}

func TestWeekRangeStartsSunday(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time // expected Sunday midnight
	}{
		{
			name: "midweek",
			now:  time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC), // Wednesday
			want: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "on sunday",
			now:  time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "saturday end of week",
			now:  time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "week crossing month boundary",
			now:  time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), // Tuesday
			want: time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Week(tt.now)
			if !r.Start.Equal(tt.want) {
				t.Fatalf("start = %v, want %v", r.Start, tt.want)
			}
			if r.Start.Weekday() != time.Sunday {
				t.Fatalf("week starts on %v, want Sunday", r.Start.Weekday())
			}
			if got := r.End.Sub(r.Start); got != 7*24*time.Hour {
				t.Fatalf("weekly span = %v, want 168h", got)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	r := Month(2025, time.February, time.UTC)
	if !r.Start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", r.Start)
	}
	if !r.End.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", r.End)
	}
	if got := r.Days(); got != 28 {
		t.Fatalf("February 2025 Days() = %d, want 28", got)
	}

	dec := Month(2024, time.December, time.UTC)
	if !dec.End.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("December end = %v, want January 1", dec.End)
	}
}

func TestMonthByName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		month   time.Month
		wantErr bool
	}{
		{"full name", "January", time.January, false},
		{"lower case", "september", time.September, false},
		{"abbreviation", "feb", time.February, false},
		{"padded", " March ", time.March, false},
		{"unknown", "Snowuary", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := MonthByName(2025, tt.in, time.UTC)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPeriod) {
					t.Fatalf("expected ErrInvalidPeriod, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Start.Month() != tt.month {
				t.Fatalf("month = %v, want %v", r.Start.Month(), tt.month)
			}
		})
	}
}

func TestRangeContainsHalfOpen(t *testing.T) {
	r := Day(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	if !r.Contains(r.Start) {
		t.Error("start instant must be inside the range")
	}
	if r.Contains(r.End) {
		t.Error("end instant must be outside the range")
	}
	if !r.Contains(r.End.Add(-time.Nanosecond)) {
		t.Error("instant just before end must be inside the range")
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2025, 6, 18, 8, 0, 0, 0, time.UTC)

	daily, err := Resolve(now, core.Daily)
	if err != nil || daily.Days() != 1 {
		t.Fatalf("daily resolve: %v days=%d", err, daily.Days())
	}
	weekly, err := Resolve(now, core.Weekly)
	if err != nil || weekly.Days() != 7 {
		t.Fatalf("weekly resolve: %v days=%d", err, weekly.Days())
	}
	monthly, err := Resolve(now, core.Monthly)
	if err != nil || monthly.Days() != 30 {
		t.Fatalf("monthly resolve: %v days=%d", err, monthly.Days())
	}
	if _, err := Resolve(now, core.Frequency("fortnightly")); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
