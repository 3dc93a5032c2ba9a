package aggregate

import (
	"math"

	"fintrack/internal/core"
	"fintrack/internal/period"
)

// Inputs is one coherent snapshot set for an aggregation pass. The
// caller guarantees all collections belong to the same identity and
// bundle version; mixing snapshot generations here is a correctness bug.
type Inputs struct {
	Window       period.Range
	Transactions []core.Transaction
	Accounts     []core.Account
	Catalog      []core.Category // already merged, see core.MergeCatalog
	Budgets      []core.Budget
}

// Summary is the display-ready aggregate for one period.
type Summary struct {
	Window period.Range

	// TransactionIncome is the sum of logged income-kind transactions;
	// RecurringIncome is the period-proportional estimate from account
	// configurations, rounded to whole cents. TotalIncome is their sum.
	TransactionIncome core.Money
	RecurringIncome   core.Money
	TotalIncome       core.Money

	TotalExpenses core.Money
	Net           core.Money

	// BudgetProgress lists only categories with an active budget, in
	// display order. Rollup keeps every category.
	BudgetProgress []BudgetProgress
	Rollup         []BudgetProgress
}

// Summarize composes the rollup, income normalization and budget
// evaluation into one summary. alerts and notify follow the Evaluate
// contract and may be nil.
func Summarize(in Inputs, alerts *AlertSet, notify NotifyFunc) Summary {
	income := SumKind(in.Transactions, in.Window, core.KindIncome)
	expenses := SumKind(in.Transactions, in.Window, core.KindExpense)
	recurring := core.Money{Cents: int64(math.Round(RecurringEstimate(in.Accounts, in.Window.Days())))}

	rollup := Rollup(in.Transactions, in.Window, in.Catalog)
	progress := Evaluate(rollup, in.Budgets, alerts, notify)

	budgeted := make([]BudgetProgress, 0, len(progress))
	for _, row := range progress {
		if row.Budgeted() {
			budgeted = append(budgeted, row)
		}
	}

	totalIncome := core.Money{Cents: income.Cents + recurring.Cents}
	return Summary{
		Window:            in.Window,
		TransactionIncome: income,
		RecurringIncome:   recurring,
		TotalIncome:       totalIncome,
		TotalExpenses:     expenses,
		Net:               core.Money{Cents: totalIncome.Cents - expenses.Cents},
		BudgetProgress:    budgeted,
		Rollup:            progress,
	}
}
