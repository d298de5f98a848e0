package core

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		a, b time.Time
		want int
	}{
		{date(2024, 1, 1), date(2024, 1, 11), 10},
		{date(2024, 1, 11), date(2024, 1, 1), -10},
		{date(2024, 1, 1), date(2024, 1, 1), 0},
		// Partial days collapse to calendar day boundaries
		{time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), 1},
	}
	for i, tc := range cases {
		if got := DaysBetween(tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: DaysBetween = %d, want %d", i, got, tc.want)
		}
	}
}

func TestBudgetWindow(t *testing.T) {
	b := Budget{Period: Monthly, StartDate: date(2024, 1, 15)}
	start, end := b.Window()
	if !start.Equal(date(2024, 1, 15)) || !end.Equal(date(2024, 2, 15)) {
		t.Fatalf("monthly window = [%v, %v)", start, end)
	}

	b.Period = Weekly
	if _, end = b.Window(); !end.Equal(date(2024, 1, 22)) {
		t.Fatalf("weekly window end = %v", end)
	}

	b.Period = Yearly
	if _, end = b.Window(); !end.Equal(date(2025, 1, 15)) {
		t.Fatalf("yearly window end = %v", end)
	}

	explicit := date(2024, 3, 1)
	b.EndDate = &explicit
	if _, end = b.Window(); !end.Equal(explicit) {
		t.Fatalf("explicit end date not honored: %v", end)
	}
}

func TestPreviousWindow(t *testing.T) {
	b := Budget{Period: Monthly, StartDate: date(2024, 2, 1)}
	start, end := b.PreviousWindow()
	if !start.Equal(date(2024, 1, 1)) || !end.Equal(date(2024, 2, 1)) {
		t.Fatalf("previous window = [%v, %v)", start, end)
	}
}

func TestWeekStart(t *testing.T) {
	// 2024-01-10 is a Wednesday; its ISO week starts Monday 2024-01-08.
	if got := WeekStart(date(2024, 1, 10)); !got.Equal(date(2024, 1, 8)) {
		t.Fatalf("WeekStart = %v", got)
	}
	// Sunday belongs to the preceding Monday's week.
	if got := WeekStart(date(2024, 1, 14)); !got.Equal(date(2024, 1, 8)) {
		t.Fatalf("WeekStart(sunday) = %v", got)
	}
	if got := WeekStart(date(2024, 1, 8)); !got.Equal(date(2024, 1, 8)) {
		t.Fatalf("WeekStart(monday) = %v", got)
	}
}

func TestInWindow(t *testing.T) {
	start, end := date(2024, 1, 1), date(2024, 2, 1)
	if !InWindow(start, start, end) {
		t.Fatalf("window start should be inclusive")
	}
	if InWindow(end, start, end) {
		t.Fatalf("window end should be exclusive")
	}
}
