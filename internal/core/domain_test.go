package core

import (
	"errors"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		ID:         "t1",
		Kind:       KindExpense,
		Category:   "Food",
		Amount:     Money{Cents: 1500},
		OccurredAt: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero time", func(tx *Transaction) { tx.OccurredAt = time.Time{} }, ErrZeroTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransactionSigned(t *testing.T) {
	tx := validTransaction()
	if got := tx.Signed(); got != -1500 {
		t.Fatalf("expense Signed() = %d, want -1500", got)
	}
	tx.Kind = KindIncome
	if got := tx.Signed(); got != 1500 {
		t.Fatalf("income Signed() = %d, want 1500", got)
	}
}

func TestAccountValidate(t *testing.T) {
	tests := []struct {
		name    string
		acct    Account
		wantErr error
	}{
		{"plain account", Account{Title: "Wallet"}, nil},
		{"recurring income", Account{Title: "Bank", Income: Money{Cents: 70000}, IncomeFrequency: Weekly}, nil},
		{"empty title", Account{Title: ""}, ErrEmptyTitle},
		{"income without frequency", Account{Title: "Bank", Income: Money{Cents: 100}}, ErrMissingFrequency},
		{"frequency without income", Account{Title: "Bank", IncomeFrequency: Monthly}, ErrInvalidFrequency},
		{"negative income", Account{Title: "Bank", Income: Money{Cents: -1}, IncomeFrequency: Daily}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.acct.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	valid := Budget{ID: "b1", Category: "Food", Limit: Money{Cents: 50000}, ResetPeriod: Monthly}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	bad := valid
	bad.ResetPeriod = "quarterly"
	if !errors.Is(bad.Validate(), ErrInvalidFrequency) {
		t.Fatal("expected ErrInvalidFrequency for unknown reset period")
	}
	bad = valid
	bad.Limit = Money{}
	if !errors.Is(bad.Validate(), ErrInvalidAmount) {
		t.Fatal("expected ErrInvalidAmount for zero limit")
	}
}

func TestMergeCatalog(t *testing.T) {
	predefined := []Category{
		{Name: "Food", Icon: "fast-food", Kind: KindExpense, Predefined: true},
		{Name: "Transport", Icon: "car", Kind: KindExpense, Predefined: true},
	}
	user := []Category{
		{Name: "Food", Icon: "pizza", Description: "groceries and takeout", Kind: KindExpense},
		{Name: "Pets", Icon: "paw", Kind: KindExpense},
	}

	merged := MergeCatalog(predefined, user)
	if len(merged) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(merged))
	}
	if merged[0].Name != "Food" || merged[0].Icon != "pizza" {
		t.Errorf("user-defined icon should override predefined, got %+v", merged[0])
	}
	if !merged[0].Predefined {
		t.Error("overridden entry should stay marked predefined")
	}
	if merged[0].Description != "groceries and takeout" {
		t.Errorf("user-defined description should override, got %q", merged[0].Description)
	}
	if merged[2].Name != "Pets" {
		t.Errorf("user-only category should append, got %+v", merged[2])
	}

	// No duplicate names ever.
	seen := map[string]bool{}
	for _, c := range merged {
		if seen[c.Name] {
			t.Fatalf("duplicate category name %q in merged catalog", c.Name)
		}
		seen[c.Name] = true
	}
}
