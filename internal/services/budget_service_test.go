package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestBudgetService_Set(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	svc := NewBudgetService(store, pub)
	svc.now = func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }

	t.Run("creates budget with generated id", func(t *testing.T) {
		b, err := svc.Set(ctx, owner, core.Budget{
			Category:    "Food",
			Limit:       core.Money{Cents: 40000},
			ResetPeriod: core.Monthly,
		})
		if err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if b.ID == "" {
			t.Error("Set() should assign an ID")
		}
		if b.LastReset.IsZero() {
			t.Error("Set() should stamp LastReset")
		}
	})

	t.Run("second set on same category updates in place", func(t *testing.T) {
		first, err := svc.Set(ctx, owner, core.Budget{
			Category:    "Transport",
			Limit:       core.Money{Cents: 10000},
			ResetPeriod: core.Monthly,
		})
		if err != nil {
			t.Fatal(err)
		}

		second, err := svc.Set(ctx, owner, core.Budget{
			Category:    "Transport",
			Limit:       core.Money{Cents: 20000},
			ResetPeriod: core.Weekly,
		})
		if err != nil {
			t.Fatal(err)
		}
		if second.ID != first.ID {
			t.Errorf("updating a category's budget should keep its ID: %s != %s", second.ID, first.ID)
		}

		got, ok, err := store.BudgetForCategory(ctx, owner, "Transport")
		if err != nil || !ok {
			t.Fatalf("BudgetForCategory() = %v, %v, %v", got, ok, err)
		}
		if got.Limit.Cents != 20000 || got.ResetPeriod != core.Weekly {
			t.Errorf("budget not updated: %+v", got)
		}
	})

	t.Run("rejects invalid budget", func(t *testing.T) {
		_, err := svc.Set(ctx, owner, core.Budget{
			Category:    "",
			Limit:       core.Money{Cents: 100},
			ResetPeriod: core.Monthly,
		})
		if !errors.Is(err, core.ErrEmptyCategory) {
			t.Errorf("Set() error = %v, want ErrEmptyCategory", err)
		}
	})
}

func TestBudgetService_Delete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewBudgetService(store, &fakePublisher{})

	b, err := svc.Set(ctx, owner, core.Budget{
		Category:    "Food",
		Limit:       core.Money{Cents: 40000},
		ResetPeriod: core.Monthly,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, owner, b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.BudgetForCategory(ctx, owner, "Food"); ok {
		t.Error("budget should be gone after delete")
	}

	if err := svc.Delete(ctx, owner, b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}
