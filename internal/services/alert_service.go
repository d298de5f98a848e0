package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

// Dedup lookback and expiry per alert family. Budget and goal alerts recur
// slowly and suppress for a week; transaction alerts are short-lived.
const (
	budgetDedupLookback = 7 * 24 * time.Hour
	goalDedupLookback   = 7 * 24 * time.Hour
	txnDedupLookback    = 24 * time.Hour

	budgetAlertExpiry = 7 * 24 * time.Hour
	txnAlertExpiry    = 24 * time.Hour

	anomalyLookback = 30 * 24 * time.Hour
	sweepWindow     = time.Hour
)

// AlertService decides whether new notifications should be created. Every
// entry point is idempotent per invocation: an alert whose identity key
// already exists within its lookback window is skipped silently. The dedup
// check and the insert are intentionally not transactional; two concurrent
// invocations can produce a bounded duplicate, which the product accepts.
type AlertService struct {
	txns          TransactionReader
	budgets       BudgetReader
	goals         GoalReader
	notifications NotificationStore
	prefs         PreferencesReader
	logger        *log.Logger

	now func() time.Time
}

func NewAlertService(txns TransactionReader, budgets BudgetReader, goals GoalReader,
	notifications NotificationStore, prefs PreferencesReader, logger *log.Logger) *AlertService {
	return &AlertService{
		txns:          txns,
		budgets:       budgets,
		goals:         goals,
		notifications: notifications,
		prefs:         prefs,
		logger:        logger.WithComponent(log.ComponentAlerts),
		now:           time.Now,
	}
}

func (s *AlertService) prefsFor(ctx context.Context, ownerID string) core.NotificationPrefs {
	prefs, err := s.prefs.NotificationPrefs(ctx, ownerID)
	if err != nil {
		s.logger.WarnContext(ctx, "Preferences read failed, using defaults",
			log.FieldOwnerID, ownerID, log.FieldError, err)
		return core.DefaultNotificationPrefs()
	}
	return prefs
}

// CheckBudgetAlerts recomputes every budget's consumption and raises a
// notification for each configured threshold the percentage has crossed.
// Per-budget failures are isolated and do not abort the pass.
func (s *AlertService) CheckBudgetAlerts(ctx context.Context, ownerID string) error {
	prefs := s.prefsFor(ctx, ownerID)
	if !prefs.BudgetAlertsEnabled {
		return nil
	}

	budgets, err := s.budgets.BudgetsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("check budget alerts: %w", err)
	}

	now := s.now()
	for _, budget := range budgets {
		start, end := budget.Window()
		txns, err := s.txns.TransactionsByOwner(ctx, ownerID, start, end)
		if err != nil {
			s.logger.WarnContext(ctx, "Budget spend read failed, skipping budget",
				log.FieldBudgetID, budget.ID, log.FieldError, err)
			continue
		}

		spent := core.BudgetSpend(budget, txns, start, end)
		if budget.Amount.Cents <= 0 {
			continue
		}
		percentage := 100 * float64(spent.Cents) / float64(budget.Amount.Cents)

		for _, threshold := range prefs.BudgetAlertThresholds {
			if percentage < float64(threshold) {
				continue
			}
			expires := now.Add(budgetAlertExpiry)
			s.createUnlessDuplicate(ctx, core.Notification{
				ID:      uuid.NewString(),
				OwnerID: ownerID,
				Type:    core.TypeBudgetAlert,
				Title:   fmt.Sprintf("Budget %q reached %d%%", budget.Name, threshold),
				Message: fmt.Sprintf("You have spent %s of the %s ceiling for %q.",
					spent.String(), budget.Amount.String(), budget.Name),
				Data: core.AlertData{
					BudgetID:   budget.ID,
					Threshold:  threshold,
					Subtype:    core.SubtypeThreshold,
					Percentage: percentage,
				},
				ActionURL: fmt.Sprintf("/budgets/%d", budget.ID),
				CreatedAt: now,
				ExpiresAt: &expires,
			}, budgetDedupLookback)
		}
	}
	return nil
}

// CheckGoalReminders raises deadline-approaching reminders for goals whose
// target date falls within the configured lead window, and weekly progress
// reminders for unfinished goals when the owner asked for them.
func (s *AlertService) CheckGoalReminders(ctx context.Context, ownerID string) error {
	prefs := s.prefsFor(ctx, ownerID)
	if !prefs.GoalRemindersEnabled {
		return nil
	}

	goals, err := s.goals.GoalsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("check goal reminders: %w", err)
	}

	now := s.now()
	for _, goal := range goals {
		if goal.TargetDate != nil {
			target := *goal.TargetDate
			leadEnd := now.AddDate(0, 0, prefs.GoalDaysBeforeDeadline)
			if !target.Before(now) && !target.After(leadEnd) {
				expires := target
				s.createUnlessDuplicate(ctx, core.Notification{
					ID:      uuid.NewString(),
					OwnerID: ownerID,
					Type:    core.TypeGoalReminder,
					Title:   fmt.Sprintf("Goal %q deadline approaching", goal.Name),
					Message: fmt.Sprintf("%q is due on %s and is %.0f%% funded.",
						goal.Name, target.Format("2006-01-02"), goal.Progress()),
					Data: core.AlertData{
						GoalID:     goal.ID,
						Subtype:    core.SubtypeDeadline,
						Percentage: goal.Progress(),
					},
					ActionURL: fmt.Sprintf("/goals/%d", goal.ID),
					CreatedAt: now,
					ExpiresAt: &expires,
				}, goalDedupLookback)
			}
		}

		if prefs.GoalReminderFrequency == "weekly" && goal.Progress() < 100 {
			expires := now.Add(goalDedupLookback)
			s.createUnlessDuplicate(ctx, core.Notification{
				ID:      uuid.NewString(),
				OwnerID: ownerID,
				Type:    core.TypeGoalReminder,
				Title:   fmt.Sprintf("Progress check-in for %q", goal.Name),
				Message: fmt.Sprintf("%q is %.0f%% funded: %s of %s.",
					goal.Name, goal.Progress(), goal.CurrentAmount.String(), goal.TargetAmount.String()),
				Data: core.AlertData{
					GoalID:     goal.ID,
					Subtype:    core.SubtypeWeeklyProgress,
					Percentage: goal.Progress(),
				},
				ActionURL: fmt.Sprintf("/goals/%d", goal.ID),
				CreatedAt: now,
				ExpiresAt: &expires,
			}, goalDedupLookback)
		}
	}
	return nil
}

// CheckTransactionAlerts examines a single transaction when transactionID is
// set, or every expense recorded within the sweep window when it is nil.
// Large amounts raise an alert immediately; when unusual-spending detection
// is enabled the amount is also tested against the trailing 30-day history
// of the transaction's category.
func (s *AlertService) CheckTransactionAlerts(ctx context.Context, ownerID string, transactionID *int64) error {
	prefs := s.prefsFor(ctx, ownerID)
	if !prefs.TransactionAlertsEnabled {
		return nil
	}

	now := s.now()
	var candidates []core.Transaction
	if transactionID != nil {
		t, err := s.txns.Transaction(ctx, ownerID, *transactionID)
		if err != nil {
			return fmt.Errorf("check transaction alerts: %w", err)
		}
		if t.Type == core.Expense {
			candidates = append(candidates, t)
		}
	} else {
		var err error
		candidates, err = s.txns.ExpensesCreatedSince(ctx, ownerID, now.Add(-sweepWindow))
		if err != nil {
			return fmt.Errorf("check transaction alerts: %w", err)
		}
	}

	for _, t := range candidates {
		if t.Amount.Cents >= prefs.TransactionMinAmount.Cents {
			expires := now.Add(txnAlertExpiry)
			s.createUnlessDuplicate(ctx, core.Notification{
				ID:      uuid.NewString(),
				OwnerID: ownerID,
				Type:    core.TypeTransactionAlert,
				Title:   "Large transaction recorded",
				Message: fmt.Sprintf("An expense of %s was recorded on %s.",
					t.Amount.String(), t.Date.Format("2006-01-02")),
				Data: core.AlertData{
					TransactionID: t.ID,
					Subtype:       core.SubtypeLargeAmount,
					AmountCents:   t.Amount.Cents,
				},
				ActionURL: fmt.Sprintf("/transactions/%d", t.ID),
				CreatedAt: now,
				ExpiresAt: &expires,
			}, txnDedupLookback)
		}

		if prefs.UnusualSpendingEnabled {
			s.checkUnusualSpending(ctx, t, now)
		}
	}
	return nil
}

func (s *AlertService) checkUnusualSpending(ctx context.Context, t core.Transaction, now time.Time) {
	history, err := s.txns.ExpensesSince(ctx, t.OwnerID, now.Add(-anomalyLookback), t.CategoryID)
	if err != nil {
		s.logger.WarnContext(ctx, "Anomaly history read failed, skipping detection",
			log.FieldTransactionID, t.ID, log.FieldError, err)
		return
	}

	// The candidate itself must not characterize its own baseline.
	amounts := make([]core.Money, 0, len(history))
	for _, h := range history {
		if h.ID == t.ID {
			continue
		}
		amounts = append(amounts, h.Amount)
	}

	if !core.IsUnusualAmount(t.Amount, amounts) {
		return
	}

	stats := core.ComputeSpendStats(amounts)
	expires := now.Add(txnAlertExpiry)
	s.createUnlessDuplicate(ctx, core.Notification{
		ID:      uuid.NewString(),
		OwnerID: t.OwnerID,
		Type:    core.TypeTransactionAlert,
		Title:   "Unusual spending detected",
		Message: fmt.Sprintf("An expense of %s stands out against your 30-day average of %.2f.",
			t.Amount.String(), stats.Mean),
		Data: core.AlertData{
			TransactionID: t.ID,
			Subtype:       core.SubtypeUnusual,
			AmountCents:   t.Amount.Cents,
		},
		ActionURL: fmt.Sprintf("/transactions/%d", t.ID),
		CreatedAt: now,
		ExpiresAt: &expires,
	}, txnDedupLookback)
}

// createUnlessDuplicate inserts the notification unless one with the same
// identity key already exists within the lookback window. Creation failures
// are logged and swallowed: the next run re-evaluates the condition and tries
// again if it still holds.
func (s *AlertService) createUnlessDuplicate(ctx context.Context, n core.Notification, lookback time.Duration) {
	existing, err := s.notifications.NotificationsSince(ctx, n.OwnerID, n.Type, n.CreatedAt.Add(-lookback))
	if err != nil {
		// Proceed with the insert: a bounded duplicate beats a lost alert.
		s.logger.WarnContext(ctx, "Dedup lookup failed",
			log.FieldAlertType, n.Type, log.FieldError, err)
	} else {
		key := n.DedupKey()
		for _, e := range existing {
			if e.DedupKey() == key {
				s.logger.DebugContext(ctx, "Duplicate alert suppressed",
					log.FieldAlertType, n.Type, "dedup_key", key)
				return
			}
		}
	}

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create notification",
			log.FieldAlertType, n.Type, log.FieldError, err)
	}
}
