package aggregate

import (
	"fintrack/internal/core"
	"fintrack/internal/period"
)

// CategoryTotal is the per-category expense rollup for a period.
type CategoryTotal struct {
	Category string
	Icon     string
	Total    core.Money
	Count    int
}

// Rollup groups expense transactions by category and sums their amounts.
//
// Every catalog category appears in the result, zero-valued when nothing
// matched. Transactions referencing a category missing from the catalog
// still get an entry of their own so that the rollup conserves the total
// expense sum. Soft-deleted and non-expense transactions are ignored.
// The result carries no intrinsic order; consumers sort.
func Rollup(txs []core.Transaction, window period.Range, catalog []core.Category) []CategoryTotal {
	totals := make([]CategoryTotal, 0, len(catalog))
	index := make(map[string]int, len(catalog))
	for _, c := range catalog {
		if c.Kind != core.KindExpense {
			continue
		}
		index[c.Name] = len(totals)
		totals = append(totals, CategoryTotal{Category: c.Name, Icon: c.Icon})
	}

	for _, tx := range txs {
		if tx.Kind != core.KindExpense || tx.Deleted {
			continue
		}
		if !window.Contains(tx.OccurredAt) {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(totals)
			index[tx.Category] = i
			totals = append(totals, CategoryTotal{Category: tx.Category})
		}
		totals[i].Total.Cents += tx.Amount.Cents
		totals[i].Count++
	}
	return totals
}

// SumKind adds up the amounts of live transactions of one kind inside
// the window.
func SumKind(txs []core.Transaction, window period.Range, kind core.Kind) core.Money {
	var sum core.Money
	for _, tx := range txs {
		if tx.Kind != kind || tx.Deleted {
			continue
		}
		if !window.Contains(tx.OccurredAt) {
			continue
		}
		sum.Cents += tx.Amount.Cents
	}
	return sum
}
