package core

import (
	"math"
	"time"
)

// BudgetProgress describes consumption of a budget's ceiling within its
// active window, with forward-looking projections.
type BudgetProgress struct {
	Spent        Money   `json:"spent"`
	Remaining    Money   `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	IsOverBudget bool    `json:"isOverBudget"`

	// SpendingVelocity is average currency units spent per elapsed day.
	SpendingVelocity float64 `json:"spendingVelocity"`
	DaysRemaining    int     `json:"daysRemaining"`

	// ProjectedOverspendDate is set only while the budget still has headroom
	// and spending is underway: the date at which cumulative spend, continuing
	// at the current velocity, would exceed the ceiling.
	ProjectedOverspendDate *time.Time `json:"projectedOverspendDate,omitempty"`

	// PeriodComparison is the percentage change of spend so far versus the
	// spend accumulated by the same elapsed-day mark in the previous period.
	// Nil when no prior-period data exists.
	PeriodComparison *float64 `json:"periodComparison,omitempty"`
}

// ZeroProgress is the fallback returned when spend cannot be computed: the
// consuming dashboard must remain renderable.
func ZeroProgress(b Budget, now time.Time) BudgetProgress {
	_, end := b.Window()
	return BudgetProgress{
		Remaining:     b.Amount,
		DaysRemaining: maxInt(0, DaysBetween(now, end)),
	}
}

// BudgetSpend sums the expense transactions that qualify against the budget
// within [start, end). A transaction carrying an explicit budget reference
// counts only toward that budget; otherwise a category-scoped budget matches
// by category and an unscoped budget covers every expense. This single
// routine serves both the progress calculator and the alerting pass.
func BudgetSpend(b Budget, txns []Transaction, start, end time.Time) Money {
	var cents int64
	for _, t := range txns {
		if t.Type != Expense || t.OwnerID != b.OwnerID {
			continue
		}
		if !InWindow(t.Date, start, end) {
			continue
		}
		if !budgetMatches(b, t) {
			continue
		}
		cents += t.Amount.Cents
	}
	return Money{Cents: cents}
}

func budgetMatches(b Budget, t Transaction) bool {
	if t.BudgetID != nil {
		return *t.BudgetID == b.ID
	}
	if b.CategoryID != nil {
		return t.CategoryID != nil && *t.CategoryID == *b.CategoryID
	}
	return true
}

// ComputeProgress derives the full progress object for a budget from a
// transaction slice covering at least the previous and current periods.
func ComputeProgress(b Budget, txns []Transaction, now time.Time) BudgetProgress {
	start, end := b.Window()
	spent := BudgetSpend(b, txns, start, end)

	p := BudgetProgress{
		Spent:        spent,
		Remaining:    Money{Cents: b.Amount.Cents - spent.Cents},
		IsOverBudget: spent.Cents > b.Amount.Cents,
	}
	if b.Amount.Cents > 0 {
		p.Percentage = 100 * float64(spent.Cents) / float64(b.Amount.Cents)
	}

	elapsed := maxInt(1, DaysBetween(start, now))
	p.SpendingVelocity = spent.Units() / float64(elapsed)
	p.DaysRemaining = maxInt(0, DaysBetween(now, end))

	if p.Remaining.Cents > 0 && p.SpendingVelocity > 0 {
		days := int(math.Ceil(p.Remaining.Units() / p.SpendingVelocity))
		d := DayStart(now).AddDate(0, 0, days)
		p.ProjectedOverspendDate = &d
	}

	prevStart, prevEnd := b.PreviousWindow()
	prevMark := prevStart.AddDate(0, 0, elapsed)
	if prevMark.After(prevEnd) {
		prevMark = prevEnd
	}
	prev := BudgetSpend(b, txns, prevStart, prevMark)
	if prev.Cents > 0 {
		change := 100 * float64(spent.Cents-prev.Cents) / float64(prev.Cents)
		p.PeriodComparison = &change
	}

	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
