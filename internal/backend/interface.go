// Package backend selects and constructs the persistence layer.
package backend

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
)

// Store is the persistence surface the services and the worker depend
// on. Both the SQLite repository and the in-memory store implement it.
type Store interface {
	// ApplyTransaction persists a transaction and its account balance
	// adjustment atomically.
	ApplyTransaction(ctx context.Context, owner string, t core.Transaction) error
	SoftDeleteTransaction(ctx context.Context, owner, id string) error
	RestoreTransaction(ctx context.Context, owner, id string) error

	SaveAccount(ctx context.Context, owner string, a core.Account) error
	DeleteAccount(ctx context.Context, owner, id string) error

	SaveCategory(ctx context.Context, owner string, c core.Category) error

	SaveBudget(ctx context.Context, owner string, b core.Budget) error
	DeleteBudget(ctx context.Context, owner, id string) error
	BudgetForCategory(ctx context.Context, owner, category string) (core.Budget, bool, error)

	// SumExpenses totals live expense spending for one category inside
	// a window, used by the pre-save budget check.
	SumExpenses(ctx context.Context, owner, category string, window period.Range) (core.Money, error)

	// LoadCollection reads one collection as raw documents for the
	// snapshot decoder.
	LoadCollection(ctx context.Context, owner string, col snapshot.Collection) ([]snapshot.Document, error)

	Close() error
}

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// Result contains the store instance and its cleanup function.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLitePath string
}

// Type names a store implementation.
type Type string

const (
	SQLiteStore Type = "sqlite"
	MemoryStore Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the store type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
