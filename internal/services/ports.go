package services

import (
	"context"
	"time"

	"finpulse/internal/core"
)

// Ports for the persistence layer and the event channel. The SQLite
// repository satisfies all store interfaces; tests use in-memory fakes.
type (
	AccountReader interface {
		Account(ctx context.Context, ownerID string, id int64) (core.Account, error)
		AccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error)
	}

	OverrideWriter interface {
		SetManualBalance(ctx context.Context, ownerID string, id int64, balance core.Money, note string, at time.Time) error
		ClearManualBalance(ctx context.Context, ownerID string, id int64, restored core.Money) error
	}

	TransactionReader interface {
		Transaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error)
		TransactionsByAccount(ctx context.Context, ownerID string, accountID int64) ([]core.Transaction, error)
		// TransactionsByOwner returns transactions dated in [from, to).
		TransactionsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error)
		ExpensesSince(ctx context.Context, ownerID string, since time.Time, categoryID *int64) ([]core.Transaction, error)
		ExpensesCreatedSince(ctx context.Context, ownerID string, since time.Time) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	}

	BudgetReader interface {
		Budget(ctx context.Context, ownerID string, id int64) (core.Budget, error)
		BudgetsByOwner(ctx context.Context, ownerID string) ([]core.Budget, error)
	}

	GoalReader interface {
		GoalsByOwner(ctx context.Context, ownerID string) ([]core.Goal, error)
	}

	NotificationStore interface {
		CreateNotification(ctx context.Context, n core.Notification) error
		NotificationsSince(ctx context.Context, ownerID, typeName string, since time.Time) ([]core.Notification, error)
	}

	PreferencesReader interface {
		NotificationPrefs(ctx context.Context, ownerID string) (core.NotificationPrefs, error)
	}

	OwnerLister interface {
		ActiveOwners(ctx context.Context, since time.Time) ([]string, error)
	}

	// EventPublisher announces recorded transactions to the alert worker.
	EventPublisher interface {
		PublishTransactionRecorded(ctx context.Context, ownerID string, transactionID int64) error
	}
)
