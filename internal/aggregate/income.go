// Package aggregate computes display-ready figures from in-memory
// snapshots: recurring-income normalization, per-category rollups,
// budget evaluation and the period summary. Everything here is pure and
// synchronous; callers own I/O and re-invocation.
package aggregate

import (
	"fmt"

	"fintrack/internal/core"
)

// Average days per month and weeks per year used by both normalization
// policies. weeksPerYear deliberately matches the historical 52.18
// constant rather than 365.25/7.
const (
	daysPerYear   = 365.25
	daysPerMonth  = daysPerYear / 12
	weeksPerYear  = 52.18
	monthsPerYear = 12
)

// MonthlyEquivalent converts a recurring income configuration into its
// monthly-equivalent estimate in fractional cents. It backs the
// period-independent "average income" figure.
//
// Zero income contributes 0 regardless of frequency. A non-zero income
// with an unknown frequency is an error; negative amounts are rejected
// at entry and never reach this function.
func MonthlyEquivalent(income core.Money, freq core.Frequency) (float64, error) {
	if income.Cents == 0 {
		return 0, nil
	}
	amount := float64(income.Cents)
	switch freq {
	case core.Daily:
		return amount * daysPerMonth, nil
	case core.Weekly:
		return amount * (weeksPerYear / monthsPerYear), nil
	case core.Monthly:
		return amount, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, freq)
	}
}

// WeeklyFromMonthly derives the weekly figure from a monthly-equivalent
// estimate. MonthlyEquivalent followed by WeeklyFromMonthly round-trips
// a weekly income within floating tolerance.
func WeeklyFromMonthly(monthly float64) float64 {
	return monthly * monthsPerYear / weeksPerYear
}

// DailyFromMonthly derives the daily figure from a monthly-equivalent
// estimate.
func DailyFromMonthly(monthly float64) float64 {
	return monthly * monthsPerYear / daysPerYear
}

// PeriodProportional estimates how much recurring income falls into a
// period of the given day count, in fractional cents. It backs the
// period-bound "combined total" figure and is deliberately a separate
// policy from MonthlyEquivalent.
func PeriodProportional(income core.Money, freq core.Frequency, days int) (float64, error) {
	if income.Cents == 0 {
		return 0, nil
	}
	if days <= 0 {
		return 0, fmt.Errorf("period length must be positive, got %d days", days)
	}
	amount := float64(income.Cents)
	d := float64(days)
	switch freq {
	case core.Daily:
		return amount * d, nil
	case core.Weekly:
		return amount * d / 7, nil
	case core.Monthly:
		return amount * d / daysPerMonth, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, freq)
	}
}

// RecurringEstimate sums the period-proportional estimates of every
// account with recurring income configured. Accounts whose frequency no
// longer decodes are skipped, matching the malformed-record policy.
func RecurringEstimate(accounts []core.Account, days int) float64 {
	var total float64
	for _, a := range accounts {
		if !a.HasRecurringIncome() {
			continue
		}
		est, err := PeriodProportional(a.Income, a.IncomeFrequency, days)
		if err != nil {
			continue
		}
		total += est
	}
	return total
}
