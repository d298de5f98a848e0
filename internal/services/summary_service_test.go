package services

import (
	"context"
	"testing"
	"time"

	"finpulse/internal/cache"
	"finpulse/internal/core"
)

func newSummaryService(store *fakeStore, dashCache *cache.LRU[DashboardData]) *SummaryService {
	balances := NewBalanceService(store, store, store, testLogger())
	return NewSummaryService(store, store, balances, dashCache, testLogger())
}

func TestSummaryServiceDailyBuckets(t *testing.T) {
	store := newFakeStore()
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(10_00), Type: core.Expense, Date: date(2024, 3, 1)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(5_00), Type: core.Expense, Date: date(2024, 3, 2)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(200_00), Type: core.Income, Date: date(2024, 3, 2)})

	svc := newSummaryService(store, nil)

	buckets := svc.Summarize(context.Background(), "u1", core.Daily, 7, date(2024, 3, 3))
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Label != "2024-03-01" || buckets[0].Expenses.Cents != 10_00 {
		t.Errorf("bucket 0 = %+v", buckets[0])
	}
	if buckets[1].Income.Cents != 200_00 || buckets[1].Expenses.Cents != 5_00 {
		t.Errorf("bucket 1 = %+v", buckets[1])
	}
}

func TestSummaryServiceWindowExcludesOlder(t *testing.T) {
	store := newFakeStore()
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(99_00), Type: core.Expense, Date: date(2024, 1, 1)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(1_00), Type: core.Expense, Date: date(2024, 3, 2)})

	svc := newSummaryService(store, nil)

	buckets := svc.Summarize(context.Background(), "u1", core.Daily, 7, date(2024, 3, 3))
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1 (January fact outside window)", len(buckets))
	}
	if buckets[0].Expenses.Cents != 1_00 {
		t.Errorf("expenses = %d, want 100", buckets[0].Expenses.Cents)
	}
}

func TestSummaryServiceReadFailureReturnsEmpty(t *testing.T) {
	store := newFakeStore()
	store.failTransactions = true
	svc := newSummaryService(store, nil)

	buckets := svc.Summarize(context.Background(), "u1", core.Month, 6, date(2024, 3, 3))
	if buckets == nil || len(buckets) != 0 {
		t.Fatalf("got %v, want empty non-nil series", buckets)
	}
}

func TestSummaryServiceMonthlySummary(t *testing.T) {
	store := newFakeStore()
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(1_000_00), Type: core.Income, Date: date(2024, 2, 1)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(750_00), Type: core.Expense, Date: date(2024, 2, 15)})

	svc := newSummaryService(store, nil)

	summary := svc.MonthlySummary(context.Background(), "u1", 6, date(2024, 3, 3))
	if summary.TotalIncome.Cents != 1_000_00 {
		t.Errorf("income = %d", summary.TotalIncome.Cents)
	}
	if summary.TotalExpenses.Cents != 750_00 {
		t.Errorf("expenses = %d", summary.TotalExpenses.Cents)
	}
	if summary.SavingsRate != 0.25 {
		t.Errorf("savings rate = %v, want 0.25", summary.SavingsRate)
	}
	if len(summary.MonthlyTrend) != 1 || summary.MonthlyTrend[0].Label != "2024-02" {
		t.Errorf("trend = %+v", summary.MonthlyTrend)
	}
}

func TestSummaryServiceDashboardNetWorth(t *testing.T) {
	store := newFakeStore()
	store.accounts[1] = core.Account{ID: 1, OwnerID: "u1", Name: "Checking", Currency: "EUR"}
	store.accounts[2] = core.Account{ID: 2, OwnerID: "u1", Name: "Savings", Currency: "EUR"}
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(100_00), Type: core.Income, Date: date(2024, 3, 1)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 2, Amount: cents(40_00), Type: core.Income, Date: date(2024, 3, 1)})
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 2, Amount: cents(10_00), Type: core.Expense, Date: date(2024, 3, 2)})

	svc := newSummaryService(store, nil)

	data := svc.Dashboard(context.Background(), "u1", date(2024, 3, 3))
	if data.NetWorth.Cents != 130_00 {
		t.Errorf("net worth = %d, want 13000", data.NetWorth.Cents)
	}
	if len(data.Accounts) != 2 {
		t.Fatalf("got %d accounts", len(data.Accounts))
	}
}

func TestSummaryServiceDashboardCaching(t *testing.T) {
	store := newFakeStore()
	store.accounts[1] = core.Account{ID: 1, OwnerID: "u1", Name: "Checking"}
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(100_00), Type: core.Income, Date: date(2024, 3, 1)})

	dashCache := cache.NewLRU[DashboardData](8, time.Minute)
	svc := newSummaryService(store, dashCache)
	ctx := context.Background()
	now := date(2024, 3, 3)

	first := svc.Dashboard(ctx, "u1", now)
	if first.NetWorth.Cents != 100_00 {
		t.Fatalf("net worth = %d", first.NetWorth.Cents)
	}

	// A new fact is invisible until the cache entry is invalidated.
	store.addTransaction(core.Transaction{OwnerID: "u1", AccountID: 1, Amount: cents(50_00), Type: core.Income, Date: date(2024, 3, 2)})
	cached := svc.Dashboard(ctx, "u1", now)
	if cached.NetWorth.Cents != 100_00 {
		t.Errorf("net worth = %d, want cached 10000", cached.NetWorth.Cents)
	}

	svc.InvalidateDashboard("u1")
	fresh := svc.Dashboard(ctx, "u1", now)
	if fresh.NetWorth.Cents != 150_00 {
		t.Errorf("net worth = %d, want recomputed 15000", fresh.NetWorth.Cents)
	}
}

func TestSummaryServiceDashboardAccountFailure(t *testing.T) {
	store := newFakeStore()
	store.failAccounts = true
	svc := newSummaryService(store, nil)

	data := svc.Dashboard(context.Background(), "u1", date(2024, 3, 3))
	if data.NetWorth.Cents != 0 {
		t.Errorf("net worth = %d, want 0 when accounts unavailable", data.NetWorth.Cents)
	}
	if data.Accounts == nil {
		t.Error("accounts should be an empty slice, not nil")
	}
}
