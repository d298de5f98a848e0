package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

// fakeStore is an in-memory stand-in for the SQLite repository. Individual
// read paths can be forced to fail to exercise degradation behavior.
type fakeStore struct {
	mu sync.Mutex

	accounts      map[int64]core.Account
	transactions  map[int64]core.Transaction
	budgets       map[int64]core.Budget
	goals         []core.Goal
	notifications []core.Notification
	prefs         map[string]core.NotificationPrefs

	nextTxnID int64

	failAccounts      bool
	failTransactions  bool
	failNotifications bool
	failCreate        bool
}

var errStoreDown = errors.New("store unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     map[int64]core.Account{},
		transactions: map[int64]core.Transaction{},
		budgets:      map[int64]core.Budget{},
		prefs:        map[string]core.NotificationPrefs{},
		nextTxnID:    1,
	}
}

func (f *fakeStore) addTransaction(t core.Transaction) core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.nextTxnID
		f.nextTxnID++
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.Date
	}
	f.transactions[t.ID] = t
	return t
}

func (f *fakeStore) Account(_ context.Context, ownerID string, id int64) (core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAccounts {
		return core.Account{}, errStoreDown
	}
	a, ok := f.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeStore) AccountsByOwner(_ context.Context, ownerID string) ([]core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAccounts {
		return nil, errStoreDown
	}
	var out []core.Account
	for _, a := range f.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) SetManualBalance(_ context.Context, ownerID string, id int64, balance core.Money, note string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.ErrAccountNotFound
	}
	a.StoredBalance = nil
	a.ManualOverrideActive = true
	a.ManualBalance = &balance
	a.ManualBalanceNote = note
	a.ManualBalanceSetAt = &at
	f.accounts[id] = a
	return nil
}

func (f *fakeStore) ClearManualBalance(_ context.Context, ownerID string, id int64, restored core.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.ErrAccountNotFound
	}
	a.StoredBalance = &restored
	a.ManualOverrideActive = false
	a.ManualBalance = nil
	a.ManualBalanceNote = ""
	a.ManualBalanceSetAt = nil
	f.accounts[id] = a
	return nil
}

func (f *fakeStore) Transaction(_ context.Context, ownerID string, id int64) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return core.Transaction{}, errStoreDown
	}
	t, ok := f.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, errors.New("transaction not found")
	}
	return t, nil
}

func (f *fakeStore) TransactionsByAccount(_ context.Context, ownerID string, accountID int64) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return nil, errStoreDown
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.OwnerID == ownerID && t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TransactionsByOwner(_ context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return nil, errStoreDown
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.OwnerID == ownerID && !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ExpensesSince(_ context.Context, ownerID string, since time.Time, categoryID *int64) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return nil, errStoreDown
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.OwnerID != ownerID || t.Type != core.Expense || t.Date.Before(since) {
			continue
		}
		if categoryID != nil && (t.CategoryID == nil || *t.CategoryID != *categoryID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ExpensesCreatedSince(_ context.Context, ownerID string, since time.Time) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTransactions {
		return nil, errStoreDown
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.OwnerID == ownerID && t.Type == core.Expense && !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if f.failCreate {
		return 0, errStoreDown
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}
	return f.addTransaction(t).ID, nil
}

func (f *fakeStore) Budget(_ context.Context, ownerID string, id int64) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	return b, nil
}

func (f *fakeStore) BudgetsByOwner(_ context.Context, ownerID string) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Budget
	for _, b := range f.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) GoalsByOwner(_ context.Context, ownerID string) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Goal
	for _, g := range f.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n core.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errStoreDown
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) NotificationsSince(_ context.Context, ownerID, typeName string, since time.Time) ([]core.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotifications {
		return nil, errStoreDown
	}
	var out []core.Notification
	for _, n := range f.notifications {
		if n.OwnerID == ownerID && n.Type == typeName && !n.CreatedAt.Before(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) NotificationPrefs(_ context.Context, ownerID string) (core.NotificationPrefs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[ownerID]; ok {
		return p, nil
	}
	return core.DefaultNotificationPrefs(), nil
}

func (f *fakeStore) ActiveOwners(_ context.Context, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range f.transactions {
		if t.CreatedAt.Before(since) || seen[t.OwnerID] {
			continue
		}
		seen[t.OwnerID] = true
		out = append(out, t.OwnerID)
	}
	return out, nil
}

func (f *fakeStore) notificationCount(typeName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, note := range f.notifications {
		if note.Type == typeName {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	mu     sync.Mutex
	events []int64
	fail   bool
}

func (p *fakePublisher) PublishTransactionRecorded(_ context.Context, _ string, transactionID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, transactionID)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cents(c int64) core.Money {
	return core.Money{Cents: c}
}
