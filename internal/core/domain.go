package core

import (
	"errors"
	"strings"
	"time"
)

// Frequency is the cadence of a recurring amount or of a budget reset.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Money is an amount in integer cents. Calculations stay in cents;
	// floats appear only at display boundaries.
	Money struct {
		Cents int64
	}

	// Transaction is a single logged income or expense entry.
	//
	// AccountID may reference an account that has since been deleted;
	// AccountName is a denormalized display copy kept for exactly that
	// case. Soft-deleted transactions stay in storage and can be
	// restored, but are excluded from every aggregate.
	Transaction struct {
		ID          string
		Kind        Kind
		Category    string
		Amount      Money
		OccurredAt  time.Time
		AccountID   string
		AccountName string
		Description string
		Deleted     bool
		DeletedAt   time.Time
	}

	// Account holds a denormalized running balance and an optional
	// recurring income configuration.
	Account struct {
		ID              string
		Title           string
		Icon            string
		Balance         Money
		Income          Money     // zero when no recurring income is set
		IncomeFrequency Frequency // required iff Income is non-zero
	}

	// Category is one entry of the catalog. Predefined entries ship with
	// the application; user-defined entries may override a same-named
	// predefined entry's icon and description.
	Category struct {
		Name        string
		Icon        string
		Description string
		Kind        Kind
		Predefined  bool
	}

	// Budget is a per-category spending limit with a reset cadence.
	// At most one budget exists per category name; this is enforced by
	// the budget service, not by storage.
	Budget struct {
		ID          string
		Category    string
		Limit       Money
		ResetPeriod Frequency
		LastReset   time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrMissingFrequency = errors.New("recurring income requires a frequency")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyTitle       = errors.New("empty account title")
	ErrZeroTime         = errors.New("timestamp cannot be zero")
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

// Valid reports whether k is income or expense.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the amount is exactly zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Signed returns the balance delta this transaction applies to its
// account: positive for income, negative for expense.
func (t Transaction) Signed() int64 {
	if t.Kind == KindExpense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.OccurredAt.IsZero() {
		return ErrZeroTime
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	if a.Income.Cents < 0 {
		return ErrInvalidAmount
	}
	if a.Income.Cents > 0 && !a.IncomeFrequency.Valid() {
		return ErrMissingFrequency
	}
	if a.Income.Cents == 0 && a.IncomeFrequency != "" {
		return ErrInvalidFrequency
	}
	return nil
}

// HasRecurringIncome reports whether the account contributes a recurring
// income estimate to period summaries.
func (a Account) HasRecurringIncome() bool {
	return a.Income.Cents > 0
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if !b.ResetPeriod.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}
