package core

// Predefined catalog entries. The catalog a user actually sees is the
// merge of these with their own additions, see MergeCatalog.

// PredefinedExpenseCategories returns the built-in expense categories.
func PredefinedExpenseCategories() []Category {
	names := []struct{ name, icon string }{
		{"Food", "fast-food"},
		{"Transport", "car"},
		{"Shopping", "cart"},
		{"Entertainment", "game-controller"},
		{"Health", "medkit"},
		{"Education", "school"},
		{"Housing", "home"},
		{"Bills", "receipt"},
		{"Other", "ellipsis-horizontal"},
	}
	out := make([]Category, 0, len(names))
	for _, n := range names {
		out = append(out, Category{Name: n.name, Icon: n.icon, Kind: KindExpense, Predefined: true})
	}
	return out
}

// PredefinedIncomeCategories returns the built-in income categories.
func PredefinedIncomeCategories() []Category {
	names := []struct{ name, icon string }{
		{"Salary", "cash"},
		{"Business", "briefcase"},
		{"Gifts", "gift"},
		{"Investments", "trending-up"},
		{"Other", "ellipsis-horizontal"},
	}
	out := make([]Category, 0, len(names))
	for _, n := range names {
		out = append(out, Category{Name: n.name, Icon: n.icon, Kind: KindIncome, Predefined: true})
	}
	return out
}

type catalogKey struct {
	kind Kind
	name string
}

// MergeCatalog merges predefined and user-defined categories into one
// logical set, deduplicated by name within each kind. A user-defined
// entry overrides a same-named predefined entry's icon and description
// but never duplicates the name. Order is predefined entries first
// (overridden in place), then remaining user-defined entries in input
// order.
func MergeCatalog(predefined, userDefined []Category) []Category {
	merged := make([]Category, len(predefined))
	copy(merged, predefined)

	index := make(map[catalogKey]int, len(predefined))
	for i, c := range merged {
		index[catalogKey{c.Kind, c.Name}] = i
	}

	for _, u := range userDefined {
		if i, ok := index[catalogKey{u.Kind, u.Name}]; ok {
			if u.Icon != "" {
				merged[i].Icon = u.Icon
			}
			if u.Description != "" {
				merged[i].Description = u.Description
			}
			continue
		}
		index[catalogKey{u.Kind, u.Name}] = len(merged)
		merged = append(merged, u)
	}
	return merged
}
