package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Accrual is the result of computing dividends owed to a single stake.
// Nothing is mutated; the caller commits DividendsPaid if it accepts the run.
type Accrual struct {
	// NewlyOwed is the dividend earned since the last accrual, never negative.
	NewlyOwed decimal.Decimal
	// DividendsPaid is the cumulative value to persist if the caller commits.
	DividendsPaid decimal.Decimal
	// ElapsedMonths is the clamped number of 30-day periods used.
	ElapsedMonths int
}

// Accrue computes the dividend newly owed to a stake at the reference time.
// potential = amount x rate x min(elapsedMonths, duration); what has already
// been paid is subtracted. A negative difference (clock skew, an earlier now
// than a previous run) accrues zero: dividends are monotonic and a stake
// never owes money back. Deterministic and idempotent for a fixed now.
func (p Plan) Accrue(s Stake, now time.Time) Accrual {
	months := p.ElapsedMonths(s.StartTime, now)
	potential := s.Amount.Mul(p.MonthlyRate).Mul(decimal.NewFromInt(int64(months)))
	owed := potential.Sub(s.DividendsPaid)
	if owed.Cmp(decimal.Zero) <= 0 {
		return Accrual{NewlyOwed: decimal.Zero, DividendsPaid: s.DividendsPaid, ElapsedMonths: months}
	}
	return Accrual{NewlyOwed: owed, DividendsPaid: s.DividendsPaid.Add(owed), ElapsedMonths: months}
}
