package core

import "time"

// Calendar convention used everywhere in the engine: day boundaries at UTC
// midnight, weekly periods advance by 7 days, monthly and yearly periods by
// calendar month/year (time.AddDate normalization applies). Budget progress
// and the alerting pass share these exact boundaries.

// DayStart truncates t to UTC midnight.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DayStart(b).Sub(DayStart(a)) / (24 * time.Hour))
}

// PeriodEnd advances start by one period unit.
func PeriodEnd(start time.Time, p BudgetPeriod) time.Time {
	switch p {
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Yearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Window returns the budget's active window [start, end). The end is the
// explicit end date when set, otherwise one period after the start.
func (b Budget) Window() (start, end time.Time) {
	start = DayStart(b.StartDate)
	if b.EndDate != nil {
		return start, DayStart(*b.EndDate)
	}
	return start, PeriodEnd(start, b.Period)
}

// PreviousWindow returns the period of the same length immediately preceding
// the budget's active window.
func (b Budget) PreviousWindow() (start, end time.Time) {
	cur, _ := b.Window()
	switch b.Period {
	case Weekly:
		return cur.AddDate(0, 0, -7), cur
	case Yearly:
		return cur.AddDate(-1, 0, 0), cur
	default:
		return cur.AddDate(0, -1, 0), cur
	}
}

// WeekStart returns the Monday of t's ISO week at UTC midnight.
func WeekStart(t time.Time) time.Time {
	d := DayStart(t)
	wd := int(d.Weekday())
	if wd == 0 { // Sunday belongs to the week that started the previous Monday
		wd = 7
	}
	return d.AddDate(0, 0, 1-wd)
}

// MonthStart returns the first day of t's month at UTC midnight.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether t falls inside [start, end).
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
