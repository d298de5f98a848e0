package services

import (
	"context"
	"fmt"
	"time"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

// BudgetService computes budget consumption with forward projections.
type BudgetService struct {
	budgets BudgetReader
	txns    TransactionReader
	logger  *log.Logger
}

func NewBudgetService(budgets BudgetReader, txns TransactionReader, logger *log.Logger) *BudgetService {
	return &BudgetService{
		budgets: budgets,
		txns:    txns,
		logger:  logger.WithComponent(log.ComponentBudget),
	}
}

// Progress fetches the budget and the transactions covering its current and
// previous period and derives the progress object. A missing budget is an
// error; a failed spend computation degrades to zeroed progress so the
// consuming dashboard stays renderable.
func (s *BudgetService) Progress(ctx context.Context, ownerID string, budgetID int64, now time.Time) (core.Budget, core.BudgetProgress, error) {
	budget, err := s.budgets.Budget(ctx, ownerID, budgetID)
	if err != nil {
		return core.Budget{}, core.BudgetProgress{}, fmt.Errorf("budget progress: %w", err)
	}

	progress := s.computeProgress(ctx, budget, now)
	return budget, progress, nil
}

// ProgressAll computes progress for every budget of the owner. Per-budget
// failures are isolated: a failing budget contributes zeroed progress and the
// rest of the batch continues.
func (s *BudgetService) ProgressAll(ctx context.Context, ownerID string, now time.Time) ([]core.Budget, []core.BudgetProgress, error) {
	budgets, err := s.budgets.BudgetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list budgets: %w", err)
	}

	progress := make([]core.BudgetProgress, len(budgets))
	for i, b := range budgets {
		progress[i] = s.computeProgress(ctx, b, now)
	}
	return budgets, progress, nil
}

func (s *BudgetService) computeProgress(ctx context.Context, budget core.Budget, now time.Time) core.BudgetProgress {
	// One fetch spans the previous and current period so the comparison
	// needs no second round trip.
	prevStart, _ := budget.PreviousWindow()
	_, end := budget.Window()

	txns, err := s.txns.TransactionsByOwner(ctx, budget.OwnerID, prevStart, end)
	if err != nil {
		s.logger.WarnContext(ctx, "Spend computation failed, returning zeroed progress",
			log.FieldBudgetID, budget.ID, log.FieldError, err)
		return core.ZeroProgress(budget, now)
	}

	return core.ComputeProgress(budget, txns, now)
}
