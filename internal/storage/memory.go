package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
)

// MemoryStore is an in-memory implementation of the same surface as
// SQLiteRepository. It backs tests and local development where a real
// database is unwanted.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]map[string]core.Transaction // owner -> id -> tx
	accounts     map[string]map[string]core.Account
	categories   map[string]map[catKey]core.Category
	budgets      map[string]map[string]core.Budget
}

type catKey struct {
	kind core.Kind
	name string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]map[string]core.Transaction),
		accounts:     make(map[string]map[string]core.Account),
		categories:   make(map[string]map[catKey]core.Category),
		budgets:      make(map[string]map[string]core.Budget),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ApplyTransaction(_ context.Context, owner string, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.AccountID != "" {
		acc, ok := m.accounts[owner][t.AccountID]
		if !ok {
			return ErrAccountGone
		}
		acc.Balance.Cents += t.Signed()
		m.accounts[owner][t.AccountID] = acc
	}
	if m.transactions[owner] == nil {
		m.transactions[owner] = make(map[string]core.Transaction)
	}
	m.transactions[owner][t.ID] = t
	return nil
}

func (m *MemoryStore) SoftDeleteTransaction(_ context.Context, owner, id string) error {
	return m.toggleDeleted(owner, id, true)
}

func (m *MemoryStore) RestoreTransaction(_ context.Context, owner, id string) error {
	return m.toggleDeleted(owner, id, false)
}

func (m *MemoryStore) toggleDeleted(owner, id string, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[owner][id]
	if !ok {
		return ErrNotFound
	}
	if t.Deleted == deleted {
		return nil
	}
	t.Deleted = deleted
	if deleted {
		t.DeletedAt = time.Now().UTC()
	} else {
		t.DeletedAt = time.Time{}
	}
	m.transactions[owner][id] = t

	if t.AccountID != "" {
		if acc, ok := m.accounts[owner][t.AccountID]; ok {
			delta := t.Signed()
			if deleted {
				delta = -delta
			}
			acc.Balance.Cents += delta
			m.accounts[owner][t.AccountID] = acc
		}
	}
	return nil
}

func (m *MemoryStore) SaveAccount(_ context.Context, owner string, a core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[owner] == nil {
		m.accounts[owner] = make(map[string]core.Account)
	}
	if existing, ok := m.accounts[owner][a.ID]; ok {
		// Balance is maintained by transaction writes, not edits.
		a.Balance = existing.Balance
	}
	m.accounts[owner][a.ID] = a
	return nil
}

func (m *MemoryStore) DeleteAccount(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[owner][id]; !ok {
		return ErrNotFound
	}
	// Transactions keep their accountId and become orphaned references.
	delete(m.accounts[owner], id)
	return nil
}

func (m *MemoryStore) SaveCategory(_ context.Context, owner string, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categories[owner] == nil {
		m.categories[owner] = make(map[catKey]core.Category)
	}
	m.categories[owner][catKey{c.Kind, c.Name}] = c
	return nil
}

func (m *MemoryStore) SaveBudget(_ context.Context, owner string, b core.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budgets[owner] == nil {
		m.budgets[owner] = make(map[string]core.Budget)
	}
	m.budgets[owner][b.ID] = b
	return nil
}

func (m *MemoryStore) DeleteBudget(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.budgets[owner][id]; !ok {
		return ErrNotFound
	}
	delete(m.budgets[owner], id)
	return nil
}

func (m *MemoryStore) BudgetForCategory(_ context.Context, owner, category string) (core.Budget, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.budgets[owner]))
	for id := range m.budgets[owner] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if b := m.budgets[owner][id]; b.Category == category {
			return b, true, nil
		}
	}
	return core.Budget{}, false, nil
}

func (m *MemoryStore) SumExpenses(_ context.Context, owner, category string, window period.Range) (core.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cents int64
	for _, t := range m.transactions[owner] {
		if t.Deleted || t.Kind != core.KindExpense || t.Category != category {
			continue
		}
		if !window.Contains(t.OccurredAt) {
			continue
		}
		cents += t.Amount.Cents
	}
	return core.Money{Cents: cents}, nil
}

func (m *MemoryStore) LoadCollection(_ context.Context, owner string, col snapshot.Collection) ([]snapshot.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []snapshot.Document
	switch col {
	case snapshot.Transactions:
		for _, t := range m.transactions[owner] {
			deletedAt := ""
			if !t.DeletedAt.IsZero() {
				deletedAt = t.DeletedAt.UTC().Format(time.RFC3339)
			}
			docs = append(docs, snapshot.Document{
				"id": t.ID, "kind": string(t.Kind), "category": t.Category,
				"amount_cents": t.Amount.Cents,
				"occurred_at":  t.OccurredAt.UTC().Format(time.RFC3339),
				"account_id":   t.AccountID, "account_name": t.AccountName,
				"description": t.Description, "deleted": t.Deleted, "deleted_at": deletedAt,
			})
		}
	case snapshot.Accounts:
		for _, a := range m.accounts[owner] {
			docs = append(docs, snapshot.Document{
				"id": a.ID, "title": a.Title, "icon": a.Icon,
				"balance_cents": a.Balance.Cents,
				"income_cents":  a.Income.Cents,
				"income_frequency": string(a.IncomeFrequency),
			})
		}
	case snapshot.Categories:
		for _, c := range m.categories[owner] {
			docs = append(docs, snapshot.Document{
				"name": c.Name, "kind": string(c.Kind), "icon": c.Icon,
				"description": c.Description, "predefined": c.Predefined,
			})
		}
	case snapshot.Budgets:
		for _, b := range m.budgets[owner] {
			lastReset := ""
			if !b.LastReset.IsZero() {
				lastReset = b.LastReset.UTC().Format(time.RFC3339)
			}
			docs = append(docs, snapshot.Document{
				"id": b.ID, "category": b.Category, "limit_cents": b.Limit.Cents,
				"reset_period": string(b.ResetPeriod), "last_reset": lastReset,
			})
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", col)
	}
	return docs, nil
}

// Account returns a copy of one account, mainly for assertions in tests.
func (m *MemoryStore) Account(owner, id string) (core.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[owner][id]
	return a, ok
}

// Transaction returns a copy of one transaction.
func (m *MemoryStore) Transaction(owner, id string) (core.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[owner][id]
	return t, ok
}
