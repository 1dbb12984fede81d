package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/budget"
)

// Alert thresholds.
const (
	alert50  = 50.0
	alert75  = 75.0
	alert90  = 90.0
	alert100 = 100.0
)

var hundred = decimal.NewFromInt(100)

// usagePercentage returns spent/limit*100, or 0 when the limit is not
// positive.
func usagePercentage(spent, limit decimal.Decimal) float64 {
	if limit.Sign() <= 0 {
		return 0
	}
	pct, _ := spent.Div(limit).Mul(hundred).Float64()
	return pct
}

// classify maps a usage percentage to its status tier.
func classify(usagePct float64) BudgetTier {
	switch {
	case usagePct >= alert90:
		return TierExceeded
	case usagePct >= alert50:
		return TierWarning
	default:
		return TierSafe
	}
}

// scopeAlerts produces the threshold alerts for one scope: at most one banded
// alert below 100%, and exactly one overage alert at or above 100% citing the
// absolute amount over the limit.
func scopeAlerts(sc budget.Scope, usagePct float64, limit, spent decimal.Decimal) []BudgetAlert {
	var alerts []BudgetAlert

	switch {
	case usagePct >= alert90 && usagePct < alert100:
		alerts = append(alerts, BudgetAlert{
			Scope:     sc.Label(),
			Threshold: alert90,
			Severity:  SeverityCritical,
			Message: fmt.Sprintf("Budget is %.1f%% used (%s / %s). Approaching limit!",
				usagePct, spent.StringFixed(2), limit.StringFixed(2)),
		})
	case usagePct >= alert75 && usagePct < alert90:
		alerts = append(alerts, BudgetAlert{
			Scope:     sc.Label(),
			Threshold: alert75,
			Severity:  SeverityWarning,
			Message: fmt.Sprintf("Budget is %.1f%% used (%s / %s).",
				usagePct, spent.StringFixed(2), limit.StringFixed(2)),
		})
	case usagePct >= alert50 && usagePct < alert75:
		alerts = append(alerts, BudgetAlert{
			Scope:     sc.Label(),
			Threshold: alert50,
			Severity:  SeverityInfo,
			Message: fmt.Sprintf("Budget is %.1f%% used (%s / %s).",
				usagePct, spent.StringFixed(2), limit.StringFixed(2)),
		})
	}

	if usagePct >= alert100 {
		alerts = append(alerts, BudgetAlert{
			Scope:     sc.Label(),
			Threshold: alert100,
			Severity:  SeverityCritical,
			Message: fmt.Sprintf("Budget EXCEEDED! Spent %s exceeds limit of %s by %s",
				spent.StringFixed(2), limit.StringFixed(2), spent.Sub(limit).StringFixed(2)),
		})
	}

	return alerts
}
