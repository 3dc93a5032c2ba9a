package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/snapshot"
	"fintrack/internal/storage"
)

type capturedAlert struct {
	owner    string
	category string
}

type fakeNotifier struct {
	alerts []capturedAlert
}

func (f *fakeNotifier) NotifyBudgetExceeded(_ context.Context, owner string, row aggregate.BudgetProgress) error {
	f.alerts = append(f.alerts, capturedAlert{owner, row.Category})
	return nil
}

func seedOwner(t *testing.T, store *storage.MemoryStore, owner string) {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveAccount(ctx, owner, core.Account{
		ID: "acc-1", Title: "Checking",
		Income: core.Money{Cents: 300000}, IncomeFrequency: core.Monthly,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveBudget(ctx, owner, core.Budget{
		ID: "b-1", Category: "Food",
		Limit:       core.Money{Cents: 20000},
		ResetPeriod: core.Monthly,
		LastReset:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	// Over the Food budget: 250.00 spent against a 200.00 limit.
	if err := store.ApplyTransaction(ctx, owner, core.Transaction{
		ID: "tx-1", Kind: core.KindExpense, Category: "Food",
		Amount:     core.Money{Cents: 25000},
		OccurredAt: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
		AccountID:  "acc-1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.ApplyTransaction(ctx, owner, core.Transaction{
		ID: "tx-2", Kind: core.KindIncome, Category: "Salary",
		Amount:     core.Money{Cents: 100000},
		OccurredAt: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRecomputeWorker_Recompute(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedOwner(t, store, "user-1")

	notifier := &fakeNotifier{}
	w := NewRecomputeWorker(store, notifier)
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	if err := w.Recompute(ctx, "user-1"); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	summary, ok := w.Summary("user-1")
	if !ok {
		t.Fatal("Summary() should exist after recompute")
	}
	if summary.TotalExpenses.Cents != 25000 {
		t.Errorf("TotalExpenses = %d, want 25000", summary.TotalExpenses.Cents)
	}
	if summary.TransactionIncome.Cents != 100000 {
		t.Errorf("TransactionIncome = %d, want 100000", summary.TransactionIncome.Cents)
	}
	if summary.RecurringIncome.Cents == 0 {
		t.Error("RecurringIncome should include the account's monthly income")
	}
	if len(summary.BudgetProgress) != 1 || summary.BudgetProgress[0].Status != aggregate.StatusExceeded {
		t.Errorf("BudgetProgress = %+v, want one exceeded Food row", summary.BudgetProgress)
	}
}

func TestRecomputeWorker_AlertsFireOncePerSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedOwner(t, store, "user-1")

	notifier := &fakeNotifier{}
	w := NewRecomputeWorker(store, notifier)
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		if err := w.Recompute(ctx, "user-1"); err != nil {
			t.Fatalf("Recompute() #%d error = %v", i, err)
		}
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts fired %d times, want exactly 1", len(notifier.alerts))
	}
	if notifier.alerts[0] != (capturedAlert{"user-1", "Food"}) {
		t.Errorf("alert = %+v, want user-1/Food", notifier.alerts[0])
	}

	// A new period window re-arms the alert.
	w.now = func() time.Time { return time.Date(2024, time.April, 2, 12, 0, 0, 0, time.UTC) }
	if err := store.ApplyTransaction(ctx, "user-1", core.Transaction{
		ID: "tx-apr", Kind: core.KindExpense, Category: "Food",
		Amount:     core.Money{Cents: 30000},
		OccurredAt: time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Recompute(ctx, "user-1"); err != nil {
		t.Fatalf("Recompute() in new window error = %v", err)
	}
	if len(notifier.alerts) != 2 {
		t.Errorf("alerts after window change = %d, want 2", len(notifier.alerts))
	}
}

// The change-feed consumer and the periodic backup pass both call
// Recompute for the same owner; passes must serialize so the alert set
// stays single-writer and a bundle never mixes two loads.
func TestRecomputeWorker_ConcurrentRecomputes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedOwner(t, store, "user-1")

	notifier := &fakeNotifier{}
	w := NewRecomputeWorker(store, notifier)
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	const passes = 8
	errs := make(chan error, passes)
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- w.Recompute(ctx, "user-1")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Recompute() error = %v", err)
		}
	}

	// Every pass saw the budget exceeded, but the session dedup set
	// still fires the alert exactly once.
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts fired %d times across concurrent passes, want exactly 1", len(notifier.alerts))
	}

	summary, ok := w.Summary("user-1")
	if !ok {
		t.Fatal("Summary() should exist after recompute")
	}
	if summary.TotalExpenses.Cents != 25000 {
		t.Errorf("TotalExpenses = %d, want 25000", summary.TotalExpenses.Cents)
	}
}

func TestRecomputeWorker_OwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedOwner(t, store, "user-1")
	seedOwner(t, store, "user-2")

	notifier := &fakeNotifier{}
	w := NewRecomputeWorker(store, notifier)
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	if err := w.Recompute(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := w.Recompute(ctx, "user-2"); err != nil {
		t.Fatal(err)
	}

	// Each owner has their own alert session.
	if len(notifier.alerts) != 2 {
		t.Fatalf("alerts = %v, want one per owner", notifier.alerts)
	}

	if got := len(w.Owners()); got != 2 {
		t.Errorf("Owners() length = %d, want 2", got)
	}
}

func TestRecomputeWorker_HandleChangeMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedOwner(t, store, "user-1")

	w := NewRecomputeWorker(store, &fakeNotifier{})
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) }

	msg := amqp.NewChangeMessage("user-1", snapshot.Transactions, "tx-1")
	if err := w.HandleChangeMessage(ctx, msg); err != nil {
		t.Fatalf("HandleChangeMessage() error = %v", err)
	}
	if _, ok := w.Summary("user-1"); !ok {
		t.Error("summary should be computed after handling a change")
	}
}
