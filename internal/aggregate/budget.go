package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"fintrack/internal/core"
)

// Status classifies how far spending has progressed against a limit.
type Status string

const (
	StatusOK       Status = "ok"
	StatusCaution  Status = "caution"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// Classification thresholds as spend ratios.
const (
	cautionRatio  = 0.75
	warningRatio  = 0.90
	exceededRatio = 1.0
)

// Classify maps a spend ratio onto a status. Only meaningful when the
// budget limit is positive; callers skip classification for limit 0.
func Classify(spent, limit core.Money) Status {
	ratio := float64(spent.Cents) / float64(limit.Cents)
	switch {
	case ratio >= exceededRatio:
		return StatusExceeded
	case ratio >= warningRatio:
		return StatusWarning
	case ratio >= cautionRatio:
		return StatusCaution
	default:
		return StatusOK
	}
}

// BudgetProgress joins one category's rollup with its configured budget.
// Limit is zero and BudgetID empty when the category is unbudgeted.
type BudgetProgress struct {
	Category    string
	Icon        string
	BudgetID    string
	Limit       core.Money
	Spent       core.Money
	Count       int
	ResetPeriod core.Frequency
	Status      Status // empty when unbudgeted
	Ratio       float64
}

// Budgeted reports whether this row carries an active budget.
func (p BudgetProgress) Budgeted() bool {
	return p.Limit.Cents > 0 && p.BudgetID != ""
}

// AlertSet remembers which categories already fired an exceeded
// notification this session. It is caller-owned state: reset it whenever
// the identity or the active period changes.
type AlertSet struct {
	fired map[string]struct{}
}

// NewAlertSet returns an empty session alert set.
func NewAlertSet() *AlertSet {
	return &AlertSet{fired: make(map[string]struct{})}
}

// Fired reports whether the category has already been alerted.
func (s *AlertSet) Fired(category string) bool {
	_, ok := s.fired[category]
	return ok
}

func (s *AlertSet) mark(category string) {
	s.fired[category] = struct{}{}
}

// Reset forgets every fired alert.
func (s *AlertSet) Reset() {
	s.fired = make(map[string]struct{})
}

// NotifyFunc receives the one-time exceeded notification for a category.
type NotifyFunc func(BudgetProgress)

// Evaluate joins the rollup against the configured budgets, classifies
// each budgeted category and sorts the result for display: budgeted
// categories first, then unbudgeted, alphabetical (case-insensitive)
// within each group.
//
// When a budgeted category sits at or over its limit and has not been
// alerted yet this session, notify is invoked once and the category is
// marked in alerts. Both alerts and notify may be nil to skip
// notification handling entirely.
func Evaluate(rollup []CategoryTotal, budgets []core.Budget, alerts *AlertSet, notify NotifyFunc) []BudgetProgress {
	byCategory := make(map[string]core.Budget, len(budgets))
	for _, b := range budgets {
		if _, dup := byCategory[b.Category]; dup {
			// One budget per category is enforced upstream; keep the
			// first if storage ever disagrees.
			continue
		}
		byCategory[b.Category] = b
	}

	out := make([]BudgetProgress, 0, len(rollup))
	for _, ct := range rollup {
		row := BudgetProgress{
			Category: ct.Category,
			Icon:     ct.Icon,
			Spent:    ct.Total,
			Count:    ct.Count,
		}
		if b, ok := byCategory[ct.Category]; ok {
			row.BudgetID = b.ID
			row.Limit = b.Limit
			row.ResetPeriod = b.ResetPeriod
			row.Ratio = float64(ct.Total.Cents) / float64(b.Limit.Cents)
			row.Status = Classify(ct.Total, b.Limit)

			if row.Status == StatusExceeded && alerts != nil && !alerts.Fired(ct.Category) {
				alerts.mark(ct.Category)
				if notify != nil {
					notify(row)
				}
			}
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := out[i].Budgeted(), out[j].Budgeted()
		if bi != bj {
			return bi
		}
		return strings.ToLower(out[i].Category) < strings.ToLower(out[j].Category)
	})
	return out
}

// PreSaveCheck evaluates a prospective additional expense against its
// category budget before the write is committed. spentInWindow must be
// the spending inside the budget's own reset-period window, not the UI's
// active filter window. It returns a user-facing warning and true when
// the prospective ratio reaches the warning threshold, letting the
// caller prompt before saving.
func PreSaveCheck(prospective core.Money, spentInWindow core.Money, b core.Budget) (string, bool) {
	if b.Limit.Cents <= 0 {
		return "", false
	}
	projected := core.Money{Cents: spentInWindow.Cents + prospective.Cents}
	ratio := float64(projected.Cents) / float64(b.Limit.Cents)
	if ratio < warningRatio {
		return "", false
	}
	if ratio >= exceededRatio {
		return fmt.Sprintf("this expense puts %s over its %s budget (%s of %s)",
			b.Category, b.ResetPeriod, projected.String(), b.Limit.String()), true
	}
	return fmt.Sprintf("this expense brings %s to %.0f%% of its %s budget",
		b.Category, ratio*100, b.ResetPeriod), true
}
