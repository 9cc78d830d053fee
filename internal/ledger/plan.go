package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// accrualMonth is the deliberate accrual unit. Dividends are credited per
// elapsed 30-day period, not per calendar month, which keeps the payout
// schedule discrete and reproducible.
const accrualMonth = 30 * 24 * time.Hour

// Plan is the process-wide staking plan. It is read-only after startup and
// shared by every ledger.
type Plan struct {
	MonthlyRate      decimal.Decimal `json:"monthly_rate"`
	DurationMonths   int             `json:"duration_months"`
	ReturnMultiplier decimal.Decimal `json:"return_multiplier"`
}

// DefaultPlan returns the plan the service ships with: 5% monthly dividends
// over 12 months with the principal returned at 1x.
func DefaultPlan() Plan {
	return Plan{
		MonthlyRate:      decimal.RequireFromString("0.05"),
		DurationMonths:   12,
		ReturnMultiplier: decimal.RequireFromString("1.0"),
	}
}

// ElapsedMonths returns the whole 30-day periods between start and now,
// clamped to [0, DurationMonths].
func (p Plan) ElapsedMonths(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	months := int(now.Sub(start) / accrualMonth)
	if months > p.DurationMonths {
		return p.DurationMonths
	}
	return months
}

// MaxPayout is the total dividend a principal can ever earn under the plan.
func (p Plan) MaxPayout(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(p.MonthlyRate).Mul(decimal.NewFromInt(int64(p.DurationMonths)))
}

// Progress reports a stake's progress toward maturity as a percentage,
// clamped to 100.
func (p Plan) Progress(start, now time.Time) float64 {
	if p.DurationMonths == 0 {
		return 100
	}
	pct := float64(p.ElapsedMonths(start, now)) / float64(p.DurationMonths) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Matured reports whether a stake opened at start has run its full term.
func (p Plan) Matured(start, now time.Time) bool {
	return p.ElapsedMonths(start, now) >= p.DurationMonths
}
