package core

import (
	"fmt"
	"sort"
	"time"
)

const (
	Daily   Granularity = "daily"
	ISOWeek Granularity = "weekly"
	Month   Granularity = "monthly"
)

type (
	Granularity string

	// PeriodTotals is one bucket of the time-partitioned ledger.
	PeriodTotals struct {
		Start    time.Time `json:"start"`
		Label    string    `json:"label"`
		Income   Money     `json:"income"`
		Expenses Money     `json:"expenses"`
	}

	// FinancialSummary is the single-window monthly roll-up used by the
	// dashboard: overall totals, savings rate and a trend series for charts.
	FinancialSummary struct {
		TotalIncome   Money          `json:"totalIncome"`
		TotalExpenses Money          `json:"totalExpenses"`
		SavingsRate   float64        `json:"savingsRate"`
		MonthlyTrend  []PeriodTotals `json:"monthlyTrend"`
	}
)

func (g Granularity) Validate() error {
	switch g {
	case Daily, ISOWeek, Month:
		return nil
	}
	return ErrInvalidPeriod
}

// bucketStart maps a transaction date to its bucket key.
func (g Granularity) bucketStart(t time.Time) time.Time {
	switch g {
	case Daily:
		return DayStart(t)
	case ISOWeek:
		return WeekStart(t)
	default:
		return MonthStart(t)
	}
}

func (g Granularity) label(start time.Time) string {
	switch g {
	case Daily:
		return start.Format("2006-01-02")
	case ISOWeek:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	default:
		return start.Format("2006-01")
	}
}

// BucketTransactions partitions transactions into calendar buckets of the
// given granularity, chronologically ascending. Empty buckets between the
// first and last transaction are not materialized; chart layers interpolate.
// Most-recent-first display order is a presentation concern, not this
// function's.
func BucketTransactions(txns []Transaction, g Granularity) []PeriodTotals {
	byStart := make(map[time.Time]*PeriodTotals)
	for _, t := range txns {
		start := g.bucketStart(t.Date)
		b, ok := byStart[start]
		if !ok {
			b = &PeriodTotals{Start: start, Label: g.label(start)}
			byStart[start] = b
		}
		switch t.Type {
		case Income:
			b.Income.Cents += t.Amount.Cents
		case Expense:
			b.Expenses.Cents += t.Amount.Cents
		}
	}

	out := make([]PeriodTotals, 0, len(byStart))
	for _, b := range byStart {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// SavingsRate is (income - expenses) / income, zero when there is no income.
func SavingsRate(income, expenses Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return float64(income.Cents-expenses.Cents) / float64(income.Cents)
}

// Summarize rolls the full window up into the monthly dashboard summary.
func Summarize(txns []Transaction) FinancialSummary {
	s := FinancialSummary{
		MonthlyTrend: BucketTransactions(txns, Month),
	}
	for _, b := range s.MonthlyTrend {
		s.TotalIncome.Cents += b.Income.Cents
		s.TotalExpenses.Cents += b.Expenses.Cents
	}
	s.SavingsRate = SavingsRate(s.TotalIncome, s.TotalExpenses)
	return s
}
