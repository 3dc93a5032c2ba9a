// Package snapshot turns raw collection documents into coherent,
// versioned in-memory bundles for the aggregation core.
//
// Each delivery replaces one collection wholesale and bumps the bundle
// version. An aggregation pass only ever sees a bundle in which every
// required collection has emitted at least once; partial recomputation
// mixing snapshot generations is a correctness bug, not an optimization.
package snapshot

import (
	"sync"

	"fintrack/internal/core"
)

// Collection names the four logical document collections.
type Collection string

const (
	Transactions Collection = "transactions"
	Accounts     Collection = "accounts"
	Categories   Collection = "categories"
	Budgets      Collection = "budgets"
)

// Required lists the collections a bundle needs before aggregation runs.
func Required() []Collection {
	return []Collection{Transactions, Accounts, Categories, Budgets}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Transactions, Accounts, Categories, Budgets:
		return true
	default:
		return false
	}
}

// Bundle is an immutable, versioned snapshot set for one identity.
type Bundle struct {
	Owner        string
	Version      int64
	Transactions []core.Transaction
	Accounts     []core.Account
	Categories   []core.Category
	Budgets      []core.Budget
}

// Builder accumulates per-collection deliveries until a coherent bundle
// exists. Safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	owner   string
	version int64
	seen    map[Collection]bool

	transactions []core.Transaction
	accounts     []core.Account
	categories   []core.Category
	budgets      []core.Budget
}

// NewBuilder returns an empty builder scoped to one identity.
func NewBuilder(owner string) *Builder {
	return &Builder{
		owner: owner,
		seen:  make(map[Collection]bool),
	}
}

// Owner returns the identity the builder is scoped to.
func (b *Builder) Owner() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// Apply replaces one collection with freshly decoded documents and bumps
// the bundle version. Malformed documents have already been skipped by
// the decoder; Apply never fails a whole batch.
func (b *Builder) Apply(col Collection, docs []Document) DecodeStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	var stats DecodeStats
	switch col {
	case Transactions:
		b.transactions, stats = DecodeTransactions(docs)
	case Accounts:
		b.accounts, stats = DecodeAccounts(docs)
	case Categories:
		b.categories, stats = DecodeCategories(docs)
	case Budgets:
		b.budgets, stats = DecodeBudgets(docs)
	default:
		return stats
	}
	b.seen[col] = true
	b.version++
	return stats
}

// Ready reports whether every required collection has emitted at least
// once since the last reset.
func (b *Builder) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readyLocked()
}

func (b *Builder) readyLocked() bool {
	for _, col := range Required() {
		if !b.seen[col] {
			return false
		}
	}
	return true
}

// Bundle returns a copy of the current coherent bundle. The second
// return is false until the builder is ready.
func (b *Builder) Bundle() (Bundle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.readyLocked() {
		return Bundle{}, false
	}
	return Bundle{
		Owner:        b.owner,
		Version:      b.version,
		Transactions: append([]core.Transaction(nil), b.transactions...),
		Accounts:     append([]core.Account(nil), b.accounts...),
		Categories:   append([]core.Category(nil), b.categories...),
		Budgets:      append([]core.Budget(nil), b.budgets...),
	}, true
}

// Version returns the current bundle version. A consumer holding results
// computed from an older version must discard them.
func (b *Builder) Version() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Reset discards all accumulated state and rescopes the builder, used
// when the authenticated identity changes. The version keeps growing so
// stale passes remain distinguishable.
func (b *Builder) Reset(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owner = owner
	b.seen = make(map[Collection]bool)
	b.transactions = nil
	b.accounts = nil
	b.categories = nil
	b.budgets = nil
	b.version++
}
