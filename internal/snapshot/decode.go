package snapshot

import (
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// Document is one raw record as delivered by the store, field names as
// persisted. Decoding is tolerant: a document missing required fields is
// skipped with a warning, never failing the batch.
type Document map[string]any

// DecodeStats counts the outcome of one batch decode.
type DecodeStats struct {
	Decoded int
	Skipped int
}

// DecodeTransactions decodes a transaction batch, skipping malformed
// documents.
func DecodeTransactions(docs []Document) ([]core.Transaction, DecodeStats) {
	out := make([]core.Transaction, 0, len(docs))
	var stats DecodeStats
	for _, d := range docs {
		tx, ok := decodeTransaction(d)
		if !ok {
			stats.Skipped++
			slog.Warn("skipping malformed transaction document", "id", d.str("id"))
			continue
		}
		out = append(out, tx)
		stats.Decoded++
	}
	return out, stats
}

func decodeTransaction(d Document) (core.Transaction, bool) {
	kind := core.Kind(d.str("kind"))
	amount, okAmount := d.cents("amount_cents")
	occurred, okTime := d.time("occurred_at")
	category := d.str("category")
	if !kind.Valid() || !okAmount || amount <= 0 || !okTime || category == "" {
		return core.Transaction{}, false
	}
	tx := core.Transaction{
		ID:          d.str("id"),
		Kind:        kind,
		Category:    category,
		Amount:      core.Money{Cents: amount},
		OccurredAt:  occurred,
		AccountID:   d.str("account_id"),
		AccountName: d.str("account_name"),
		Description: d.str("description"),
		Deleted:     d.boolean("deleted"),
	}
	if t, ok := d.time("deleted_at"); ok {
		tx.DeletedAt = t
	}
	return tx, tx.ID != ""
}

// DecodeAccounts decodes an account batch, skipping malformed documents.
func DecodeAccounts(docs []Document) ([]core.Account, DecodeStats) {
	out := make([]core.Account, 0, len(docs))
	var stats DecodeStats
	for _, d := range docs {
		a, ok := decodeAccount(d)
		if !ok {
			stats.Skipped++
			slog.Warn("skipping malformed account document", "id", d.str("id"))
			continue
		}
		out = append(out, a)
		stats.Decoded++
	}
	return out, stats
}

func decodeAccount(d Document) (core.Account, bool) {
	a := core.Account{
		ID:    d.str("id"),
		Title: d.str("title"),
		Icon:  d.str("icon"),
	}
	if a.ID == "" || a.Title == "" {
		return core.Account{}, false
	}
	if balance, ok := d.cents("balance_cents"); ok {
		a.Balance = core.Money{Cents: balance}
	}
	if income, ok := d.cents("income_cents"); ok && income != 0 {
		freq := core.Frequency(d.str("income_frequency"))
		if income < 0 || !freq.Valid() {
			return core.Account{}, false
		}
		a.Income = core.Money{Cents: income}
		a.IncomeFrequency = freq
	}
	return a, true
}

// DecodeCategories decodes a category batch, skipping malformed
// documents.
func DecodeCategories(docs []Document) ([]core.Category, DecodeStats) {
	out := make([]core.Category, 0, len(docs))
	var stats DecodeStats
	for _, d := range docs {
		c := core.Category{
			Name:        d.str("name"),
			Icon:        d.str("icon"),
			Description: d.str("description"),
			Kind:        core.Kind(d.str("kind")),
			Predefined:  d.boolean("predefined"),
		}
		if c.Name == "" || !c.Kind.Valid() {
			stats.Skipped++
			slog.Warn("skipping malformed category document", "name", c.Name)
			continue
		}
		out = append(out, c)
		stats.Decoded++
	}
	return out, stats
}

// DecodeBudgets decodes a budget batch, skipping malformed documents.
func DecodeBudgets(docs []Document) ([]core.Budget, DecodeStats) {
	out := make([]core.Budget, 0, len(docs))
	var stats DecodeStats
	for _, d := range docs {
		b, ok := decodeBudget(d)
		if !ok {
			stats.Skipped++
			slog.Warn("skipping malformed budget document", "id", d.str("id"))
			continue
		}
		out = append(out, b)
		stats.Decoded++
	}
	return out, stats
}

func decodeBudget(d Document) (core.Budget, bool) {
	limit, okLimit := d.cents("limit_cents")
	b := core.Budget{
		ID:          d.str("id"),
		Category:    d.str("category"),
		Limit:       core.Money{Cents: limit},
		ResetPeriod: core.Frequency(d.str("reset_period")),
	}
	if t, ok := d.time("last_reset"); ok {
		b.LastReset = t
	}
	if b.ID == "" || b.Category == "" || !okLimit || limit <= 0 || !b.ResetPeriod.Valid() {
		return core.Budget{}, false
	}
	return b, true
}

func (d Document) str(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func (d Document) boolean(key string) bool {
	switch v := d[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// cents reads an integer amount, tolerating the float64 representation
// JSON decoding produces.
func (d Document) cents(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// time reads an instant, either as time.Time or as RFC 3339 text.
func (d Document) time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case string:
		if v == "" {
			return time.Time{}, false
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
