package services

import (
	"context"
	"testing"
	"time"

	"finpulse/internal/amqp"
	"finpulse/internal/core"
)

func newTestProcessor(store *fakeStore, now time.Time) *AlertProcessor {
	alerts := newAlertService(store, now)
	config := DefaultAlertProcessorConfig()
	config.SweepInterval = 50 * time.Millisecond
	return NewAlertProcessor(alerts, store, config, testLogger())
}

func TestAlertProcessorStartStop(t *testing.T) {
	store := newFakeStore()
	processor := newTestProcessor(store, time.Now())
	ctx := context.Background()

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !processor.IsRunning() {
		t.Error("processor should be running after start")
	}
	if err := processor.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after stop")
	}
}

func TestAlertProcessorStartTwice(t *testing.T) {
	store := newFakeStore()
	processor := newTestProcessor(store, time.Now())
	ctx := context.Background()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer processor.Stop(ctx)

	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting an already running processor")
	}
}

func TestAlertProcessorStopNotRunning(t *testing.T) {
	store := newFakeStore()
	processor := newTestProcessor(store, time.Now())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle processor: %v", err)
	}
}

func TestAlertProcessorHandleTransactionEvent(t *testing.T) {
	now := date(2024, 1, 15)
	store := newFakeStore()
	store.budgets[1] = core.Budget{
		ID: 1, OwnerID: "u1", Name: "Groceries",
		Amount: cents(100_00), Period: core.Monthly, StartDate: date(2024, 1, 1),
	}
	txn := store.addTransaction(core.Transaction{
		OwnerID: "u1", AccountID: 1, Amount: cents(600_00), Type: core.Expense,
		Date: now, CreatedAt: now,
	})

	processor := newTestProcessor(store, now)

	msg := amqp.NewTransactionRecordedMessage("u1", txn.ID)
	if err := processor.HandleTransactionEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}

	if got := store.notificationCount(core.TypeTransactionAlert); got != 1 {
		t.Errorf("got %d transaction alerts, want 1 (large amount)", got)
	}
	// 600 against a 100 ceiling crosses every configured threshold.
	if got := store.notificationCount(core.TypeBudgetAlert); got != 3 {
		t.Errorf("got %d budget alerts, want 3", got)
	}
}

func TestAlertProcessorSweepIsIdempotent(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.budgets[1] = core.Budget{
		ID: 1, OwnerID: "u1", Name: "Groceries",
		Amount: cents(100_00), Period: core.Monthly, StartDate: now.AddDate(0, -1, 0),
	}
	store.addTransaction(core.Transaction{
		OwnerID: "u1", AccountID: 1, Amount: cents(85_00), Type: core.Expense,
		Date: now, CreatedAt: now,
	})

	processor := newTestProcessor(store, now)
	processor.runSweep(context.Background())
	processor.runSweep(context.Background())

	if got := store.notificationCount(core.TypeBudgetAlert); got != 1 {
		t.Errorf("got %d budget alerts after two sweeps, want 1", got)
	}
}
