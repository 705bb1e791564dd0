// Package qualify computes advisory tenant qualification checks from income,
// referencing, and affordability data. All functions are pure: they read the
// tenant record handed to them and never touch the database.
//
// The checks are advisory. Assignment is permitted regardless of the outcome
// unless the engine's qualification policy is enabled; the UI surfaces them
// as a pre-assignment gate.
package qualify

import (
	"math"

	"github.com/dalemusser/propertyhub/internal/domain/models"
)

// Income multipliers. Gross income uses the more lenient multiplier, so it is
// preferred when both figures are present.
const (
	GrossIncomeMultiplier = 2.5
	NetIncomeMultiplier   = 3.0
)

// IncomeResult is the outcome of an income qualification check. Ratio is
// income divided by monthly rent, rounded to two decimal places, and is
// reported whenever income exists so callers can show how far off an
// unqualified applicant is.
type IncomeResult struct {
	Qualified bool    `json:"qualified"`
	Ratio     float64 `json:"ratio"`
	Reason    string  `json:"reason,omitempty"`
}

// AffordabilityResult is the outcome of an affordability check. Exactly one
// of DisposableAfterRent/Shortfall is meaningful: disposable-after-rent when
// affordable, shortfall when not.
type AffordabilityResult struct {
	Affordable          bool    `json:"affordable"`
	DisposableAfterRent float64 `json:"disposable_after_rent,omitempty"`
	Shortfall           float64 `json:"shortfall,omitempty"`
	Ratio               float64 `json:"ratio"`
	Reason              string  `json:"reason,omitempty"`
}

// CheckIncome reports whether the tenant's income qualifies them for the
// given monthly rent. Gross monthly income is used when present (2.5×
// multiplier); otherwise net monthly income (3.0×). With no income
// information at all the check fails closed.
func CheckIncome(t models.Tenant, monthlyRent float64) IncomeResult {
	if monthlyRent <= 0 {
		return IncomeResult{Reason: "monthly rent must be positive"}
	}

	var income, multiplier float64
	switch {
	case t.Employment.GrossMonthlyIncome != nil:
		income = *t.Employment.GrossMonthlyIncome
		multiplier = GrossIncomeMultiplier
	case t.Employment.NetMonthlyIncome != nil:
		income = *t.Employment.NetMonthlyIncome
		multiplier = NetIncomeMultiplier
	default:
		return IncomeResult{Reason: "no income information provided"}
	}

	res := IncomeResult{
		Qualified: income >= monthlyRent*multiplier,
		Ratio:     round2(income / monthlyRent),
	}
	if !res.Qualified {
		res.Reason = "income below required multiple of rent"
	}
	return res
}

// CheckAffordability reports whether the tenant can afford the given monthly
// rent from disposable income. The explicit affordability assessment is used
// when present; otherwise gross employment income with zero assumed expenses
// and commitments. With no income signal at all the check fails closed.
func CheckAffordability(t models.Tenant, monthlyRent float64) AffordabilityResult {
	if monthlyRent <= 0 {
		return AffordabilityResult{Reason: "monthly rent must be positive"}
	}

	var income, expenses, commitments float64
	switch {
	case t.Affordability != nil:
		income = t.Affordability.MonthlyIncome
		expenses = t.Affordability.MonthlyExpenses
		commitments = t.Affordability.MonthlyCommitments
	case t.Employment.GrossMonthlyIncome != nil:
		income = *t.Employment.GrossMonthlyIncome
	default:
		return AffordabilityResult{Reason: "no income data"}
	}

	disposable := income - expenses - commitments
	res := AffordabilityResult{
		Affordable: disposable >= monthlyRent,
		Ratio:      round2(disposable / monthlyRent),
	}
	if res.Affordable {
		res.DisposableAfterRent = disposable - monthlyRent
	} else {
		res.Shortfall = monthlyRent - disposable
		res.Reason = "disposable income below monthly rent"
	}
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
