package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/snapshot"
)

// AccountService handles account and category writes.
type AccountService struct {
	store     backend.Store
	publisher Publisher
}

func NewAccountService(store backend.Store, publisher Publisher) *AccountService {
	return &AccountService{store: store, publisher: publisher}
}

// SaveAccount creates or updates an account. Balances are never edited
// here; they only move through transaction writes.
func (s *AccountService) SaveAccount(ctx context.Context, owner string, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("validate account: %w", err)
	}
	if err := s.store.SaveAccount(ctx, owner, a); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.publishChange(ctx, owner, snapshot.Accounts, a.ID)
	return a, nil
}

// DeleteAccount removes an account. Transactions that reference it keep
// their accountId and denormalized accountName; they are not cascaded.
func (s *AccountService) DeleteAccount(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteAccount(ctx, owner, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.publishChange(ctx, owner, snapshot.Accounts, id)
	return nil
}

// SaveCategory creates or updates a user-defined category. Names are
// unique per kind; saving an existing name updates icon and description.
func (s *AccountService) SaveCategory(ctx context.Context, owner string, c core.Category) error {
	c.Predefined = false
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate category: %w", err)
	}
	if err := s.store.SaveCategory(ctx, owner, c); err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	s.publishChange(ctx, owner, snapshot.Categories, c.Name)
	return nil
}

func (s *AccountService) publishChange(ctx context.Context, owner string, col snapshot.Collection, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, owner, col, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"owner", owner, "collection", string(col), "id", id, "error", err)
	}
}
