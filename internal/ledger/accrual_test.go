package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testPlan() Plan {
	return Plan{
		MonthlyRate:      decimal.RequireFromString("0.05"),
		DurationMonths:   12,
		ReturnMultiplier: decimal.RequireFromString("1.0"),
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func TestElapsedMonths(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before start", t0.Add(-time.Hour), 0},
		{"same instant", t0, 0},
		{"29 days", t0.Add(days(29)), 0},
		{"30 days", t0.Add(days(30)), 1},
		{"65 days", t0.Add(days(65)), 2},
		{"full term", t0.Add(days(360)), 12},
		{"beyond term clamps", t0.Add(days(2000)), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plan.ElapsedMonths(t0, tt.now); got != tt.want {
				t.Errorf("ElapsedMonths = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAccrueProratedDividend(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stake := Stake{
		ID:            "s1",
		Amount:        decimal.NewFromInt(1000),
		StartTime:     t0,
		DividendsPaid: decimal.Zero,
		IsActive:      true,
	}

	// 65 days elapsed -> 2 whole months -> 1000 * 0.05 * 2 = 100
	acc := plan.Accrue(stake, t0.Add(days(65)))
	if !acc.NewlyOwed.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("NewlyOwed = %s, want 100", acc.NewlyOwed)
	}
	if !acc.DividendsPaid.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("DividendsPaid = %s, want 100", acc.DividendsPaid)
	}
	if acc.ElapsedMonths != 2 {
		t.Fatalf("ElapsedMonths = %d, want 2", acc.ElapsedMonths)
	}
}

func TestAccrueSubtractsAlreadyPaid(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stake := Stake{
		Amount:        decimal.NewFromInt(1000),
		StartTime:     t0,
		DividendsPaid: decimal.NewFromInt(100),
		IsActive:      true,
	}

	// Three months elapsed, two already paid out.
	acc := plan.Accrue(stake, t0.Add(days(95)))
	if !acc.NewlyOwed.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("NewlyOwed = %s, want 50", acc.NewlyOwed)
	}
	if !acc.DividendsPaid.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("DividendsPaid = %s, want 150", acc.DividendsPaid)
	}
}

func TestAccrueNeverNegative(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stake := Stake{
		Amount:        decimal.NewFromInt(1000),
		StartTime:     t0,
		DividendsPaid: decimal.NewFromInt(100),
		IsActive:      true,
	}

	// Clock moved backwards relative to the last run: one elapsed month is
	// worth 50, but 100 has already been paid. Nothing is clawed back.
	acc := plan.Accrue(stake, t0.Add(days(31)))
	if !acc.NewlyOwed.IsZero() {
		t.Fatalf("NewlyOwed = %s, want 0", acc.NewlyOwed)
	}
	if !acc.DividendsPaid.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("DividendsPaid changed to %s", acc.DividendsPaid)
	}
}

func TestAccrueCappedAtMaxPayout(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stake := Stake{
		Amount:        decimal.NewFromInt(1000),
		StartTime:     t0,
		DividendsPaid: decimal.Zero,
		IsActive:      true,
	}

	// Far beyond the 12-month term the payout stops at 1000 * 0.05 * 12.
	acc := plan.Accrue(stake, t0.Add(days(3650)))
	if !acc.NewlyOwed.Equal(plan.MaxPayout(stake.Amount)) {
		t.Fatalf("NewlyOwed = %s, want %s", acc.NewlyOwed, plan.MaxPayout(stake.Amount))
	}

	stake.DividendsPaid = acc.DividendsPaid
	again := plan.Accrue(stake, t0.Add(days(4000)))
	if !again.NewlyOwed.IsZero() {
		t.Fatalf("accrued %s past the cap", again.NewlyOwed)
	}
}

func TestAccrueIdempotentForFixedNow(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0.Add(days(100))
	stake := Stake{Amount: decimal.NewFromInt(800), StartTime: t0, DividendsPaid: decimal.Zero}

	first := plan.Accrue(stake, now)
	stake.DividendsPaid = first.DividendsPaid
	second := plan.Accrue(stake, now)
	if !second.NewlyOwed.IsZero() {
		t.Fatalf("second accrual for same now = %s, want 0", second.NewlyOwed)
	}
}

func TestProgress(t *testing.T) {
	plan := testPlan()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"fresh stake", t0, 0},
		{"halfway", t0.Add(days(180)), 50},
		{"matured", t0.Add(days(360)), 100},
		{"clamped past term", t0.Add(days(720)), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plan.Progress(t0, tt.now); got != tt.want {
				t.Errorf("Progress = %v, want %v", got, tt.want)
			}
		})
	}
}
