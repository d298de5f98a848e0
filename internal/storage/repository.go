// Package storage persists and reads the engine's record set on SQLite.
// The engine only ever issues owner-scoped reads plus two narrow writes:
// transaction inserts and notification inserts; the surrounding CRUD layer
// owns everything else.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finpulse/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts ---

const accountColumns = `id, owner_id, name, type, currency, stored_balance_cents,
	manual_override_active, manual_balance_cents, manual_balance_note, manual_balance_set_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a        core.Account
		stored   sql.NullInt64
		override int64
		manual   sql.NullInt64
		setAt    sql.NullTime
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Currency, &stored,
		&override, &manual, &a.ManualBalanceNote, &setAt)
	if err != nil {
		return core.Account{}, err
	}
	a.ManualOverrideActive = override != 0
	if stored.Valid {
		a.StoredBalance = &core.Money{Cents: stored.Int64}
	}
	if manual.Valid {
		a.ManualBalance = &core.Money{Cents: manual.Int64}
	}
	if setAt.Valid {
		t := setAt.Time
		a.ManualBalanceSetAt = &t
	}
	return a, nil
}

func (r *SQLiteRepository) Account(ctx context.Context, ownerID string, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) AccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetManualBalance activates a manual override and clears the stored ledger
// value so there is never more than one source of truth.
func (r *SQLiteRepository) SetManualBalance(ctx context.Context, ownerID string, id int64, balance core.Money, note string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET manual_override_active = 1, manual_balance_cents = ?, manual_balance_note = ?,
		     manual_balance_set_at = ?, stored_balance_cents = NULL
		 WHERE id = ? AND owner_id = ?`,
		balance.Cents, note, at.UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("set manual balance: %w", err)
	}
	return requireRow(res, core.ErrAccountNotFound)
}

// ClearManualBalance deactivates the override and writes the ledger-derived
// balance back as the stored value, leaving no residual override fields.
func (r *SQLiteRepository) ClearManualBalance(ctx context.Context, ownerID string, id int64, restored core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET manual_override_active = 0, manual_balance_cents = NULL, manual_balance_note = '',
		     manual_balance_set_at = NULL, stored_balance_cents = ?
		 WHERE id = ? AND owner_id = ?`,
		restored.Cents, id, ownerID)
	if err != nil {
		return fmt.Errorf("clear manual balance: %w", err)
	}
	return requireRow(res, core.ErrAccountNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, owner_id, account_id, category_id, budget_id,
	amount_cents, type, description, date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t        core.Transaction
		category sql.NullInt64
		budget   sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.AccountID, &category, &budget,
		&t.Amount.Cents, &t.Type, &t.Description, &t.Date, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if category.Valid {
		t.CategoryID = &category.Int64
	}
	if budget.Valid {
		t.BudgetID = &budget.Int64
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	// Account must exist and belong to the owner; the ledger never carries
	// orphan facts.
	if _, err := r.Account(ctx, t.OwnerID, t.AccountID); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (owner_id, account_id, category_id, budget_id, amount_cents, type, description, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.AccountID, nullInt(t.CategoryID), nullInt(t.BudgetID),
		t.Amount.Cents, string(t.Type), t.Description, t.Date.UTC())
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", id,
		"owner_id", t.OwnerID,
		"account_id", t.AccountID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)

	return id, nil
}

func (r *SQLiteRepository) Transaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) TransactionsByAccount(ctx context.Context, ownerID string, accountID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE owner_id = ? AND account_id = ? ORDER BY date, id`,
		ownerID, accountID)
}

// TransactionsByOwner returns the owner's transactions dated in [from, to).
func (r *SQLiteRepository) TransactionsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? AND date >= ? AND date < ? ORDER BY date, id`,
		ownerID, from.UTC(), to.UTC())
}

// ExpensesSince returns expense transactions dated on or after since,
// optionally restricted to one category. Feeds the anomaly history.
func (r *SQLiteRepository) ExpensesSince(ctx context.Context, ownerID string, since time.Time, categoryID *int64) ([]core.Transaction, error) {
	if categoryID != nil {
		return r.queryTransactions(ctx,
			`SELECT `+transactionColumns+` FROM transactions
			 WHERE owner_id = ? AND type = 'expense' AND date >= ? AND category_id = ? ORDER BY date, id`,
			ownerID, since.UTC(), *categoryID)
	}
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? AND type = 'expense' AND date >= ? ORDER BY date, id`,
		ownerID, since.UTC())
}

// ExpensesCreatedSince returns expenses recorded (not dated) after the given
// instant. The scheduled sweep uses it to pick up unexamined transactions.
func (r *SQLiteRepository) ExpensesCreatedSince(ctx context.Context, ownerID string, since time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? AND type = 'expense' AND created_at >= ? ORDER BY created_at, id`,
		ownerID, since.UTC())
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ActiveOwners lists owners with transactions recorded after the given
// instant. The sweep only re-evaluates owners with recent activity.
func (r *SQLiteRepository) ActiveOwners(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM transactions WHERE created_at >= ?`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// --- budgets & goals ---

const budgetColumns = `id, owner_id, name, amount_cents, period, category_id, start_date, end_date`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b        core.Budget
		category sql.NullInt64
		endDate  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Amount.Cents, &b.Period, &category, &b.StartDate, &endDate)
	if err != nil {
		return core.Budget{}, err
	}
	if category.Valid {
		b.CategoryID = &category.Int64
	}
	if endDate.Valid {
		t := endDate.Time
		b.EndDate = &t
	}
	return b, nil
}

func (r *SQLiteRepository) Budget(ctx context.Context, ownerID string, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) BudgetsByOwner(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) GoalsByOwner(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents, target_date
		 FROM goals WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g          core.Goal
			targetDate sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &targetDate); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if targetDate.Valid {
			t := targetDate.Time
			g.TargetDate = &t
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// --- notifications ---

func (r *SQLiteRepository) NotificationTypeByName(ctx context.Context, name string) (core.NotificationType, error) {
	var nt core.NotificationType
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, display_name, priority FROM notification_types WHERE name = ?`, name).
		Scan(&nt.ID, &nt.Name, &nt.DisplayName, &nt.Priority)
	if err != nil {
		return core.NotificationType{}, fmt.Errorf("notification type %q: %w", name, err)
	}
	return nt, nil
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) error {
	nt, err := r.NotificationTypeByName(ctx, n.Type)
	if err != nil {
		return err
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, owner_id, type_id, title, message, data, action_url, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, nt.ID, n.Title, n.Message, string(data), n.ActionURL,
		n.CreatedAt.UTC(), nullTime(n.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	slog.InfoContext(ctx, "Notification created",
		"id", n.ID,
		"owner_id", n.OwnerID,
		"type", n.Type,
		"title", n.Title)

	return nil
}

// NotificationsSince returns the owner's notifications of one type created
// after the given instant. This is the dedup lookback read.
func (r *SQLiteRepository) NotificationsSince(ctx context.Context, ownerID, typeName string, since time.Time) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT n.id, n.owner_id, t.name, n.title, n.message, n.data, n.action_url, n.created_at, n.expires_at, n.read_at
		 FROM notifications n
		 JOIN notification_types t ON t.id = n.type_id
		 WHERE n.owner_id = ? AND t.name = ? AND n.created_at >= ?
		 ORDER BY n.created_at`,
		ownerID, typeName, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			data      string
			expiresAt sql.NullTime
			readAt    sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Type, &n.Title, &n.Message, &data,
			&n.ActionURL, &n.CreatedAt, &expiresAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			slog.WarnContext(ctx, "Malformed notification data payload", "id", n.ID, "error", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			n.ExpiresAt = &t
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- preferences ---

// NotificationPrefs returns the owner's alerting configuration, falling back
// to defaults when no preference row exists.
func (r *SQLiteRepository) NotificationPrefs(ctx context.Context, ownerID string) (core.NotificationPrefs, error) {
	var (
		p          core.NotificationPrefs
		budgetOn   int64
		thresholds string
		goalsOn    int64
		txnOn      int64
		unusualOn  int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT budget_alerts_enabled, budget_alert_thresholds, goal_reminders_enabled,
		        goal_reminder_frequency, goal_days_before_deadline, transaction_alerts_enabled,
		        transaction_min_amount_cents, unusual_spending_enabled
		 FROM user_preferences WHERE owner_id = ?`, ownerID).
		Scan(&budgetOn, &thresholds, &goalsOn, &p.GoalReminderFrequency,
			&p.GoalDaysBeforeDeadline, &txnOn, &p.TransactionMinAmount.Cents, &unusualOn)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultNotificationPrefs(), nil
	}
	if err != nil {
		return core.NotificationPrefs{}, fmt.Errorf("get notification prefs: %w", err)
	}

	p.BudgetAlertsEnabled = budgetOn != 0
	p.GoalRemindersEnabled = goalsOn != 0
	p.TransactionAlertsEnabled = txnOn != 0
	p.UnusualSpendingEnabled = unusualOn != 0
	if err := json.Unmarshal([]byte(thresholds), &p.BudgetAlertThresholds); err != nil || len(p.BudgetAlertThresholds) == 0 {
		p.BudgetAlertThresholds = core.DefaultNotificationPrefs().BudgetAlertThresholds
	}
	return p, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}
