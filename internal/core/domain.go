package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	TypeBudgetAlert      = "budget_alert"
	TypeGoalReminder     = "goal_reminder"
	TypeTransactionAlert = "transaction_alert"
)

// Alert subtypes carried in the notification data payload. Together with the
// entity id they form the identity key used for duplicate suppression.
const (
	SubtypeThreshold      = "threshold"
	SubtypeDeadline       = "deadline"
	SubtypeWeeklyProgress = "weekly_progress"
	SubtypeLargeAmount    = "large_amount"
	SubtypeUnusual        = "unusual_spending"
)

type (
	BudgetPeriod    string
	TransactionType string
	AccountType     string

	Account struct {
		ID       int64
		OwnerID  string
		Name     string
		Type     AccountType
		Currency string

		// StoredBalance is the last persisted ledger value. It is nil while a
		// manual override is active: the two must never both be set.
		StoredBalance        *Money
		ManualOverrideActive bool
		ManualBalance        *Money
		ManualBalanceNote    string
		ManualBalanceSetAt   *time.Time
	}

	// Transaction is an immutable ledger fact. Amount is an unsigned
	// magnitude; the sign comes from the type.
	Transaction struct {
		ID          int64
		OwnerID     string
		AccountID   int64
		CategoryID  *int64
		BudgetID    *int64
		Amount      Money
		Type        TransactionType
		Description string
		Date        time.Time
		CreatedAt   time.Time
	}

	Budget struct {
		ID      int64
		OwnerID string
		Name    string
		Amount  Money
		Period  BudgetPeriod
		// CategoryID is nil for unscoped budgets, which cover all categories.
		CategoryID *int64
		StartDate  time.Time
		EndDate    *time.Time
	}

	Goal struct {
		ID            int64
		OwnerID       string
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    *time.Time
	}

	NotificationType struct {
		ID          int64
		Name        string
		DisplayName string
		Priority    int
	}

	Notification struct {
		ID        string
		OwnerID   string
		Type      string
		Title     string
		Message   string
		Data      AlertData
		ActionURL string
		CreatedAt time.Time
		ExpiresAt *time.Time
		ReadAt    *time.Time
	}

	// AlertData is the structured payload attached to a notification. The
	// populated fields depend on the notification type.
	AlertData struct {
		BudgetID      int64   `json:"budgetId,omitempty"`
		GoalID        int64   `json:"goalId,omitempty"`
		TransactionID int64   `json:"transactionId,omitempty"`
		Threshold     int     `json:"threshold,omitempty"`
		Subtype       string  `json:"subtype,omitempty"`
		Percentage    float64 `json:"percentage,omitempty"`
		AmountCents   int64   `json:"amountCents,omitempty"`
	}

	// NotificationPrefs holds the per-owner alerting configuration.
	NotificationPrefs struct {
		BudgetAlertsEnabled      bool
		BudgetAlertThresholds    []int
		GoalRemindersEnabled     bool
		GoalReminderFrequency    string // "weekly" or "monthly"
		GoalDaysBeforeDeadline   int
		TransactionAlertsEnabled bool
		TransactionMinAmount     Money
		UnusualSpendingEnabled   bool
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPeriod   = errors.New("invalid budget period")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyOwner      = errors.New("empty owner id")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrAccountNotFound = errors.New("account not found")
	ErrBudgetNotFound  = errors.New("budget not found")
)

// DefaultNotificationPrefs returns the alerting configuration applied when an
// owner has no stored preference record.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{
		BudgetAlertsEnabled:      true,
		BudgetAlertThresholds:    []int{80, 90, 100},
		GoalRemindersEnabled:     true,
		GoalReminderFrequency:    "weekly",
		GoalDaysBeforeDeadline:   7,
		TransactionAlertsEnabled: true,
		TransactionMinAmount:     Money{Cents: 50_000},
		UnusualSpendingEnabled:   true,
	}
}

// SignedCents returns the transaction's contribution to its account balance:
// positive for income, negative for expense. Transfer legs are recorded per
// account by the CRUD layer and contribute nothing here.
func (t Transaction) SignedCents() int64 {
	switch t.Type {
	case Income:
		return t.Amount.Cents
	case Expense:
		return -t.Amount.Cents
	default:
		return 0
	}
}

func (p BudgetPeriod) Validate() error {
	switch p {
	case Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidPeriod
}

func (tt TransactionType) Validate() error {
	switch tt {
	case Income, Expense, Transfer:
		return nil
	}
	return ErrInvalidType
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if t.AccountID <= 0 {
		return errors.New("missing account reference")
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if len(strings.TrimSpace(b.Name)) == 0 {
		return errors.New("empty budget name")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.StartDate.IsZero() {
		return ErrZeroDate
	}
	if b.EndDate != nil && !b.EndDate.After(b.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

// Progress returns goal completion as a percentage, capped at 100.
func (g Goal) Progress() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	pct := 100 * float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents)
	if pct > 100 {
		return 100
	}
	return pct
}

// DedupKey returns the type-specific identity used for duplicate suppression.
// Two notifications of the same type with equal keys within the lookback
// window are the same alert.
func (n Notification) DedupKey() string {
	switch n.Type {
	case TypeBudgetAlert:
		return "budget:" + strconv.FormatInt(n.Data.BudgetID, 10) + ":" + strconv.Itoa(n.Data.Threshold)
	case TypeGoalReminder:
		return "goal:" + strconv.FormatInt(n.Data.GoalID, 10) + ":" + n.Data.Subtype
	case TypeTransactionAlert:
		return "txn:" + strconv.FormatInt(n.Data.TransactionID, 10) + ":" + n.Data.Subtype
	}
	return n.Type
}
