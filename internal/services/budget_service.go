package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/snapshot"
)

// BudgetService maintains the one-budget-per-category rule.
type BudgetService struct {
	store     backend.Store
	publisher Publisher
	now       func() time.Time
}

func NewBudgetService(store backend.Store, publisher Publisher) *BudgetService {
	return &BudgetService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Set creates or replaces the budget for a category. Setting a budget
// on a category that already has one updates it in place, keeping its
// identity stable.
func (s *BudgetService) Set(ctx context.Context, owner string, b core.Budget) (core.Budget, error) {
	existing, ok, err := s.store.BudgetForCategory(ctx, owner, b.Category)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load existing budget: %w", err)
	}
	if ok {
		b.ID = existing.ID
		if b.LastReset.IsZero() {
			b.LastReset = existing.LastReset
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.LastReset.IsZero() {
		b.LastReset = s.now()
	}

	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validate budget: %w", err)
	}

	if err := s.store.SaveBudget(ctx, owner, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.publishChange(ctx, owner, b.ID)
	return b, nil
}

// Delete removes a budget, reverting its category to the unbudgeted
// display state.
func (s *BudgetService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteBudget(ctx, owner, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.publishChange(ctx, owner, id)
	return nil
}

func (s *BudgetService) publishChange(ctx context.Context, owner, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, owner, snapshot.Budgets, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget change",
			"owner", owner, "id", id, "error", err)
	}
}
