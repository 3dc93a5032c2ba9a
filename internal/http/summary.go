package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
)

// resolveWindow computes the aggregation window from query parameters.
// mode is daily, weekly or monthly (the default); monthly accepts an
// explicit year plus a month number or English month name.
func resolveWindow(r *http.Request, now time.Time) (period.Range, error) {
	q := r.URL.Query()
	mode := strings.ToLower(strings.TrimSpace(q.Get("mode")))

	switch mode {
	case "daily":
		return period.Day(now), nil
	case "weekly":
		return period.Week(now), nil
	case "monthly", "":
		year := now.Year()
		if v := strings.TrimSpace(q.Get("year")); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil {
				return period.Range{}, fmt.Errorf("%w: invalid year %q", period.ErrInvalidPeriod, v)
			}
			year = y
		}
		v := strings.TrimSpace(q.Get("month"))
		if v == "" {
			return period.Month(year, now.Month(), now.Location()), nil
		}
		if m, err := strconv.Atoi(v); err == nil {
			if m < 1 || m > 12 {
				return period.Range{}, fmt.Errorf("%w: month %d out of range", period.ErrInvalidPeriod, m)
			}
			return period.Month(year, time.Month(m), now.Location()), nil
		}
		return period.MonthByName(year, v, now.Location())
	default:
		return period.Range{}, fmt.Errorf("%w: unknown filter mode %q", period.ErrInvalidPeriod, mode)
	}
}

// summarize computes (or serves from cache) the owner's summary for one
// window. The read path never fires budget notifications; those belong
// to the recompute worker's session.
func (s *Server) summarize(r *http.Request, owner string, window period.Range) (aggregate.Summary, error) {
	gen := s.generation(owner)
	key := summaryCacheKey(owner, gen, window.Start.UTC().Format(time.RFC3339)+"/"+window.End.UTC().Format(time.RFC3339))

	if cached, ok := s.summaryCache.Get(key); ok {
		return cached, nil
	}

	builder := snapshot.NewBuilder(owner)
	if err := backend.LoadBundle(r.Context(), s.store, builder); err != nil {
		return aggregate.Summary{}, err
	}
	bundle, ok := builder.Bundle()
	if !ok {
		return aggregate.Summary{}, fmt.Errorf("snapshot for %s is incomplete", owner)
	}

	catalog := core.MergeCatalog(
		append(core.PredefinedExpenseCategories(), core.PredefinedIncomeCategories()...),
		bundle.Categories,
	)

	summary := aggregate.Summarize(aggregate.Inputs{
		Window:       window,
		Transactions: bundle.Transactions,
		Accounts:     bundle.Accounts,
		Catalog:      catalog,
		Budgets:      bundle.Budgets,
	}, nil, nil)

	s.summaryCache.Set(key, summary)
	return summary, nil
}

type windowDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type progressDTO struct {
	Category    string  `json:"category"`
	Icon        string  `json:"icon,omitempty"`
	BudgetID    string  `json:"budgetId,omitempty"`
	LimitCents  int64   `json:"limitCents,omitempty"`
	SpentCents  int64   `json:"spentCents"`
	Count       int     `json:"count"`
	ResetPeriod string  `json:"resetPeriod,omitempty"`
	Status      string  `json:"status,omitempty"`
	Ratio       float64 `json:"ratio,omitempty"`
}

type summaryDTO struct {
	Window                 windowDTO     `json:"window"`
	TransactionIncomeCents int64         `json:"transactionIncomeCents"`
	RecurringIncomeCents   int64         `json:"recurringIncomeCents"`
	TotalIncomeCents       int64         `json:"totalIncomeCents"`
	TotalExpensesCents     int64         `json:"totalExpensesCents"`
	NetCents               int64         `json:"netCents"`
	Budgets                []progressDTO `json:"budgets"`
	Rollup                 []progressDTO `json:"rollup"`
}

func toProgressDTO(rows []aggregate.BudgetProgress) []progressDTO {
	out := make([]progressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, progressDTO{
			Category:    row.Category,
			Icon:        row.Icon,
			BudgetID:    row.BudgetID,
			LimitCents:  row.Limit.Cents,
			SpentCents:  row.Spent.Cents,
			Count:       row.Count,
			ResetPeriod: string(row.ResetPeriod),
			Status:      string(row.Status),
			Ratio:       row.Ratio,
		})
	}
	return out
}

func toSummaryDTO(sum aggregate.Summary) summaryDTO {
	return summaryDTO{
		Window:                 windowDTO{Start: sum.Window.Start, End: sum.Window.End},
		TransactionIncomeCents: sum.TransactionIncome.Cents,
		RecurringIncomeCents:   sum.RecurringIncome.Cents,
		TotalIncomeCents:       sum.TotalIncome.Cents,
		TotalExpensesCents:     sum.TotalExpenses.Cents,
		NetCents:               sum.Net.Cents,
		Budgets:                toProgressDTO(sum.BudgetProgress),
		Rollup:                 toProgressDTO(sum.Rollup),
	}
}
