// Package storage persists the four document collections in SQLite and
// implements the atomic apply-transaction write.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrAccountGone is returned by ApplyTransaction when the referenced
// account no longer exists; the whole write is rolled back so no
// intermediate state is ever visible.
var ErrAccountGone = errors.New("referenced account no longer exists")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ApplyTransaction inserts the transaction and, when it references an
// account, adjusts that account's denormalized balance in the same SQL
// transaction. Both writes land together or not at all.
func (r *SQLiteRepository) ApplyTransaction(ctx context.Context, owner string, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, owner_id, kind, category, amount_cents, occurred_at,
			 account_id, account_name, description, deleted, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		t.ID, owner, string(t.Kind), t.Category, t.Amount.Cents,
		t.OccurredAt.UTC().Format(time.RFC3339), t.AccountID, t.AccountName, t.Description)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if t.AccountID != "" {
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND owner_id = ?`,
			t.Signed(), t.AccountID, owner)
		if err != nil {
			return fmt.Errorf("adjust account balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("adjust account balance: %w", err)
		}
		if n == 0 {
			return ErrAccountGone
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply transaction: %w", err)
	}

	slog.InfoContext(ctx, "transaction applied",
		"id", t.ID,
		"kind", string(t.Kind),
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"account_id", t.AccountID)
	return nil
}

// SoftDeleteTransaction flags the transaction deleted and reverses its
// balance contribution when the account still exists. A transaction
// whose account has been deleted is simply flagged; its balance died
// with the account.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, owner, id string) error {
	return r.toggleDeleted(ctx, owner, id, true)
}

// RestoreTransaction clears the deleted flag and re-applies the balance
// contribution when the account still exists.
func (r *SQLiteRepository) RestoreTransaction(ctx context.Context, owner, id string) error {
	return r.toggleDeleted(ctx, owner, id, false)
}

func (r *SQLiteRepository) toggleDeleted(ctx context.Context, owner, id string, deleted bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin soft delete: %w", err)
	}
	defer tx.Rollback()

	var kind, accountID string
	var amountCents int64
	var wasDeleted bool
	err = tx.QueryRowContext(ctx,
		`SELECT kind, account_id, amount_cents, deleted FROM transactions WHERE id = ? AND owner_id = ?`,
		id, owner).Scan(&kind, &accountID, &amountCents, &wasDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if wasDeleted == deleted {
		return nil // idempotent
	}

	var deletedAt any
	if deleted {
		deletedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET deleted = ?, deleted_at = ? WHERE id = ? AND owner_id = ?`,
		deleted, deletedAt, id, owner)
	if err != nil {
		return fmt.Errorf("flag transaction: %w", err)
	}

	if accountID != "" {
		delta := core.Transaction{Kind: core.Kind(kind), Amount: core.Money{Cents: amountCents}}.Signed()
		if deleted {
			delta = -delta
		}
		// Orphaned references are tolerated: zero rows just means the
		// account is gone.
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND owner_id = ?`,
			delta, accountID, owner); err != nil {
			return fmt.Errorf("adjust account balance: %w", err)
		}
	}

	return tx.Commit()
}

// SaveAccount inserts or updates an account.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, owner string, a core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, title, icon, balance_cents, income_cents, income_frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			icon = excluded.icon,
			income_cents = excluded.income_cents,
			income_frequency = excluded.income_frequency`,
		a.ID, owner, a.Title, a.Icon, a.Balance.Cents, a.Income.Cents, string(a.IncomeFrequency))
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// DeleteAccount removes the account. Historical transactions keep their
// accountId and become orphaned references, deliberately: no cascade,
// no nulling out.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveCategory inserts or updates a user-defined category.
func (r *SQLiteRepository) SaveCategory(ctx context.Context, owner string, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (owner_id, name, kind, icon, description, predefined)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, kind, name) DO UPDATE SET
			icon = excluded.icon,
			description = excluded.description`,
		owner, c.Name, string(c.Kind), c.Icon, c.Description, c.Predefined)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// SaveBudget inserts or updates a budget.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, owner string, b core.Budget) error {
	var lastReset any
	if !b.LastReset.IsZero() {
		lastReset = b.LastReset.UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category, limit_cents, reset_period, last_reset)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			limit_cents = excluded.limit_cents,
			reset_period = excluded.reset_period,
			last_reset = excluded.last_reset`,
		b.ID, owner, b.Category, b.Limit.Cents, string(b.ResetPeriod), lastReset)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// DeleteBudget removes the budget, reverting its category to the
// unbudgeted display state.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BudgetForCategory returns the budget configured for a category, if
// any. With the one-budget-per-category rule enforced by the service,
// the first row wins if storage ever holds duplicates.
func (r *SQLiteRepository) BudgetForCategory(ctx context.Context, owner, category string) (core.Budget, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category, limit_cents, reset_period, COALESCE(last_reset, '')
		FROM budgets WHERE owner_id = ? AND category = ?
		ORDER BY id LIMIT 1`, owner, category)

	var b core.Budget
	var resetPeriod, lastReset string
	err := row.Scan(&b.ID, &b.Category, &b.Limit.Cents, &resetPeriod, &lastReset)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("load budget for category: %w", err)
	}
	b.ResetPeriod = core.Frequency(resetPeriod)
	if lastReset != "" {
		if t, err := time.Parse(time.RFC3339, lastReset); err == nil {
			b.LastReset = t
		}
	}
	return b, true, nil
}

// SumExpenses totals live expense spending for one category inside a
// window. Used by the pre-save budget check against the budget's own
// reset-period window.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, owner, category string, window period.Range) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE owner_id = ? AND category = ? AND kind = ? AND deleted = 0
		  AND occurred_at >= ? AND occurred_at < ?`,
		owner, category, string(core.KindExpense),
		window.Start.UTC().Format(time.RFC3339), window.End.UTC().Format(time.RFC3339)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// LoadCollection reads one collection as raw documents. The snapshot
// decoder owns tolerant decoding, so rows come back untyped.
func (r *SQLiteRepository) LoadCollection(ctx context.Context, owner string, col snapshot.Collection) ([]snapshot.Document, error) {
	switch col {
	case snapshot.Transactions:
		return r.loadTransactions(ctx, owner)
	case snapshot.Accounts:
		return r.loadAccounts(ctx, owner)
	case snapshot.Categories:
		return r.loadCategories(ctx, owner)
	case snapshot.Budgets:
		return r.loadBudgets(ctx, owner)
	default:
		return nil, fmt.Errorf("unknown collection %q", col)
	}
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context, owner string) ([]snapshot.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, category, amount_cents, occurred_at,
		       account_id, account_name, description, deleted, COALESCE(deleted_at, '')
		FROM transactions WHERE owner_id = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var docs []snapshot.Document
	for rows.Next() {
		var id, kind, category, occurredAt, accountID, accountName, description, deletedAt string
		var amountCents int64
		var deleted bool
		if err := rows.Scan(&id, &kind, &category, &amountCents, &occurredAt,
			&accountID, &accountName, &description, &deleted, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		docs = append(docs, snapshot.Document{
			"id": id, "kind": kind, "category": category,
			"amount_cents": amountCents, "occurred_at": occurredAt,
			"account_id": accountID, "account_name": accountName,
			"description": description, "deleted": deleted, "deleted_at": deletedAt,
		})
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) loadAccounts(ctx context.Context, owner string) ([]snapshot.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, icon, balance_cents, income_cents, income_frequency
		FROM accounts WHERE owner_id = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var docs []snapshot.Document
	for rows.Next() {
		var id, title, icon, freq string
		var balance, income int64
		if err := rows.Scan(&id, &title, &icon, &balance, &income, &freq); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		docs = append(docs, snapshot.Document{
			"id": id, "title": title, "icon": icon,
			"balance_cents": balance, "income_cents": income, "income_frequency": freq,
		})
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, owner string) ([]snapshot.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, kind, icon, description, predefined
		FROM categories WHERE owner_id = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var docs []snapshot.Document
	for rows.Next() {
		var name, kind, icon, description string
		var predefined bool
		if err := rows.Scan(&name, &kind, &icon, &description, &predefined); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		docs = append(docs, snapshot.Document{
			"name": name, "kind": kind, "icon": icon,
			"description": description, "predefined": predefined,
		})
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) loadBudgets(ctx context.Context, owner string) ([]snapshot.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, limit_cents, reset_period, COALESCE(last_reset, '')
		FROM budgets WHERE owner_id = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	var docs []snapshot.Document
	for rows.Next() {
		var id, category, resetPeriod, lastReset string
		var limit int64
		if err := rows.Scan(&id, &category, &limit, &resetPeriod, &lastReset); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		docs = append(docs, snapshot.Document{
			"id": id, "category": category, "limit_cents": limit,
			"reset_period": resetPeriod, "last_reset": lastReset,
		})
	}
	return docs, rows.Err()
}
