// Package services orchestrates writes across storage and the change
// feed. Storage is the source of truth; publishing a change message is
// best effort and never fails the request.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/aggregate"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
)

// Publisher announces document changes. *amqp.Client satisfies it.
type Publisher interface {
	PublishChange(ctx context.Context, owner string, col snapshot.Collection, id string) error
}

// CreateResult reports the outcome of a transaction create attempt.
// When NeedsConfirmation is set, nothing was saved: the caller should
// surface Warning and retry with force once the user confirms.
type CreateResult struct {
	ID                string
	Warning           string
	NeedsConfirmation bool
}

// TransactionService handles the transaction write path, including the
// pre-save budget check.
type TransactionService struct {
	store     backend.Store
	publisher Publisher
	now       func() time.Time
}

func NewTransactionService(store backend.Store, publisher Publisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates and persists a transaction. Expense transactions are
// checked against their category's budget first: if the prospective
// spending reaches the warning threshold over the budget's own reset
// window, the save is withheld until the caller confirms with force.
func (s *TransactionService) Create(ctx context.Context, owner string, t core.Transaction, force bool) (CreateResult, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = s.now()
	}
	if err := t.Validate(); err != nil {
		return CreateResult{}, fmt.Errorf("validate transaction: %w", err)
	}

	if t.Kind == core.KindExpense && !force {
		warning, blocked, err := s.budgetWarning(ctx, owner, t)
		if err != nil {
			return CreateResult{}, err
		}
		if blocked {
			return CreateResult{Warning: warning, NeedsConfirmation: true}, nil
		}
	}

	if err := s.store.ApplyTransaction(ctx, owner, t); err != nil {
		return CreateResult{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, owner, snapshot.Transactions, t.ID)
	if t.AccountID != "" {
		// The balance moved too.
		s.publish(ctx, owner, snapshot.Accounts, t.AccountID)
	}

	return CreateResult{ID: t.ID}, nil
}

// budgetWarning runs the pre-save check against the budget configured
// for the transaction's category, over that budget's reset window.
func (s *TransactionService) budgetWarning(ctx context.Context, owner string, t core.Transaction) (string, bool, error) {
	budget, ok, err := s.store.BudgetForCategory(ctx, owner, t.Category)
	if err != nil {
		return "", false, fmt.Errorf("load budget: %w", err)
	}
	if !ok || budget.Limit.Cents <= 0 {
		return "", false, nil
	}

	window, err := period.Resolve(s.now(), budget.ResetPeriod)
	if err != nil {
		slog.WarnContext(ctx, "Budget has invalid reset period, skipping pre-save check",
			"budget_id", budget.ID, "reset_period", string(budget.ResetPeriod))
		return "", false, nil
	}

	spent, err := s.store.SumExpenses(ctx, owner, t.Category, window)
	if err != nil {
		return "", false, fmt.Errorf("sum category spending: %w", err)
	}

	warning, blocked := aggregate.PreSaveCheck(t.Amount, spent, budget)
	return warning, blocked, nil
}

// Delete soft deletes a transaction. The record stays in storage and
// can be restored; aggregation ignores it while flagged.
func (s *TransactionService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.SoftDeleteTransaction(ctx, owner, id); err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	s.publish(ctx, owner, snapshot.Transactions, id)
	return nil
}

// Restore clears the soft delete flag.
func (s *TransactionService) Restore(ctx context.Context, owner, id string) error {
	if err := s.store.RestoreTransaction(ctx, owner, id); err != nil {
		return fmt.Errorf("restore transaction: %w", err)
	}
	s.publish(ctx, owner, snapshot.Transactions, id)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, owner string, col snapshot.Collection, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Change publisher not available, skipping change message")
		return
	}
	if err := s.publisher.PublishChange(ctx, owner, col, id); err != nil {
		// The write already succeeded; the periodic recompute will
		// catch up.
		slog.ErrorContext(ctx, "Failed to publish change message",
			"owner", owner, "collection", string(col), "id", id, "error", err)
	}
}
