package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumleap-finance/staking-service/internal/money"
)

const testAddress = "0x1a2B3c4D5e6F70819203a4B5C6d7E8f901234567"

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(initial int64) *Ledger {
	return New(testPlan(), decimal.NewFromInt(initial), t0)
}

// replay reconstructs the balance from the committed entries only.
func replay(entries []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Status == StatusFailed {
			continue
		}
		if e.credit() {
			total = total.Add(e.Amount)
		} else {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

func TestNewLedgerRecordsInitialBalance(t *testing.T) {
	l := newTestLedger(5000)
	if !l.Balance().Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance = %s, want 5000", l.Balance())
	}
	hist := l.History()
	if len(hist) != 1 {
		t.Fatalf("entries = %d, want 1", len(hist))
	}
	if hist[0].Type != TypeDeposit || hist[0].Details != "Initial Balance" {
		t.Fatalf("unexpected initial entry: %+v", hist[0])
	}
}

func TestOpenStake(t *testing.T) {
	l := newTestLedger(5000)

	stake, tx, err := l.OpenStake(decimal.NewFromInt(1000), t0)
	if err != nil {
		t.Fatalf("OpenStake: %v", err)
	}
	if !l.Balance().Equal(decimal.NewFromInt(4000)) {
		t.Errorf("balance = %s, want 4000", l.Balance())
	}
	if !stake.IsActive || !stake.DividendsPaid.IsZero() {
		t.Errorf("stake not initialized: %+v", stake)
	}
	if tx.Type != TypeStake || tx.Status != StatusCompleted {
		t.Errorf("unexpected stake entry: %+v", tx)
	}
	if got := len(l.Stakes(t0)); got != 1 {
		t.Errorf("stakes = %d, want 1", got)
	}
	if !l.TotalStaked().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("total staked = %s, want 1000", l.TotalStaked())
	}
}

func TestOpenStakeInsufficientBalance(t *testing.T) {
	l := newTestLedger(100)
	_, _, err := l.OpenStake(decimal.NewFromInt(1000), t0)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if !l.Balance().Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance changed to %s", l.Balance())
	}
	if len(l.Stakes(t0)) != 0 {
		t.Errorf("stake created despite failure")
	}
}

func TestSyncDividendsScenario(t *testing.T) {
	l := newTestLedger(5000)
	if _, _, err := l.OpenStake(decimal.NewFromInt(1000), t0); err != nil {
		t.Fatalf("OpenStake: %v", err)
	}

	// 65 days at 5%/month over 12 months: two whole periods, 100 owed.
	res := l.SyncDividends(t0.Add(days(65)))
	if !res.TotalDividends.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("dividends = %s, want 100", res.TotalDividends)
	}
	if res.Transaction == nil || res.Transaction.Type != TypeDividendPayout {
		t.Fatalf("expected a dividend payout entry, got %+v", res.Transaction)
	}
	if !l.Balance().Equal(decimal.NewFromInt(4100)) {
		t.Errorf("balance = %s, want 4100", l.Balance())
	}
	if !l.TotalDividends().Equal(decimal.NewFromInt(100)) {
		t.Errorf("total dividends = %s, want 100", l.TotalDividends())
	}
}

func TestSyncDividendsIdempotent(t *testing.T) {
	l := newTestLedger(5000)
	l.OpenStake(decimal.NewFromInt(1000), t0)
	now := t0.Add(days(65))

	l.SyncDividends(now)
	entries := len(l.History())

	res := l.SyncDividends(now)
	if !res.TotalDividends.IsZero() || res.Transaction != nil {
		t.Fatalf("second sync accrued %s", res.TotalDividends)
	}
	if len(l.History()) != entries {
		t.Errorf("second sync appended an entry")
	}
}

func TestSyncDividendsMonotonic(t *testing.T) {
	l := newTestLedger(5000)
	l.OpenStake(decimal.NewFromInt(1000), t0)

	l.SyncDividends(t0.Add(days(95)))
	paid := l.TotalDividends()

	// An earlier reference time never claws dividends back.
	res := l.SyncDividends(t0.Add(days(35)))
	if !res.TotalDividends.IsZero() {
		t.Fatalf("backwards sync accrued %s", res.TotalDividends)
	}
	if !l.TotalDividends().Equal(paid) {
		t.Errorf("dividendsPaid decreased from %s to %s", paid, l.TotalDividends())
	}
}

func TestSyncDividendsAggregatesAcrossStakes(t *testing.T) {
	l := newTestLedger(5000)
	l.OpenStake(decimal.NewFromInt(500), t0)
	l.OpenStake(decimal.NewFromInt(300), t0)

	before := len(l.History())
	res := l.SyncDividends(t0.Add(days(31)))

	// 500 accrues 25 and 300 accrues 15 for one period; the log gets one
	// aggregate payout entry, not one per stake.
	if !res.TotalDividends.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("dividends = %s, want 40", res.TotalDividends)
	}
	if got := len(l.History()) - before; got != 1 {
		t.Fatalf("appended %d entries, want 1", got)
	}
	if !res.Transaction.Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("payout entry amount = %s, want 40", res.Transaction.Amount)
	}
}

func TestWithdrawInsufficientBalanceIsAtomic(t *testing.T) {
	l := newTestLedger(200)
	entries := len(l.History())

	_, err := l.Withdraw(decimal.NewFromInt(500), testAddress, t0)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if !l.Balance().Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance = %s, want 200", l.Balance())
	}
	if len(l.History()) != entries {
		t.Errorf("failed withdraw appended an entry")
	}
}

func TestWithdrawValidatesAddress(t *testing.T) {
	l := newTestLedger(1000)

	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"missing prefix", "1a2B3c4D5e6F70819203a4B5C6d7E8f90123456789"},
		{"too short", "0xabc"},
		{"non-hex", "0xzz2B3c4D5e6F70819203a4B5C6d7E8f901234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Withdraw(decimal.NewFromInt(10), tt.address, t0)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("err = %v, want ErrInvalidAddress", err)
			}
		})
	}
	if !l.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed to %s", l.Balance())
	}
}

func TestWithdrawDebitsOptimistically(t *testing.T) {
	l := newTestLedger(1000)

	tx, err := l.Withdraw(decimal.NewFromInt(400), testAddress, t0)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if tx.Status != StatusPending {
		t.Errorf("status = %s, want Pending", tx.Status)
	}
	if tx.Details != "To address: "+testAddress {
		t.Errorf("details = %q", tx.Details)
	}
	if !l.Balance().Equal(decimal.NewFromInt(600)) {
		t.Errorf("balance = %s, want 600", l.Balance())
	}
}

func TestSettleWithdrawalCompleted(t *testing.T) {
	l := newTestLedger(1000)
	tx, _ := l.Withdraw(decimal.NewFromInt(400), testAddress, t0)

	settled, err := l.SettleWithdrawal(tx.ID, true)
	if err != nil {
		t.Fatalf("SettleWithdrawal: %v", err)
	}
	if settled.Status != StatusCompleted {
		t.Errorf("status = %s, want Completed", settled.Status)
	}
	if !l.Balance().Equal(decimal.NewFromInt(600)) {
		t.Errorf("balance = %s, want 600", l.Balance())
	}
	// A settled entry cannot be settled again.
	if _, err := l.SettleWithdrawal(tx.ID, false); !errors.Is(err, ErrNotSettleable) {
		t.Errorf("err = %v, want ErrNotSettleable", err)
	}
}

func TestSettleWithdrawalFailedRefunds(t *testing.T) {
	l := newTestLedger(1000)
	tx, _ := l.Withdraw(decimal.NewFromInt(400), testAddress, t0)

	settled, err := l.SettleWithdrawal(tx.ID, false)
	if err != nil {
		t.Fatalf("SettleWithdrawal: %v", err)
	}
	if settled.Status != StatusFailed {
		t.Errorf("status = %s, want Failed", settled.Status)
	}
	if !l.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance = %s, want 1000 after refund", l.Balance())
	}
	if !l.Balance().Equal(replay(l.History())) {
		t.Errorf("balance %s does not replay to %s", l.Balance(), replay(l.History()))
	}
}

func TestSettleWithdrawalUnknownTransaction(t *testing.T) {
	l := newTestLedger(1000)
	if _, err := l.SettleWithdrawal("nope", true); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestReleaseStake(t *testing.T) {
	l := newTestLedger(5000)
	stake, _, _ := l.OpenStake(decimal.NewFromInt(1000), t0)

	if _, err := l.ReleaseStake(stake.ID, t0.Add(days(100))); !errors.Is(err, ErrStakeNotMatured) {
		t.Fatalf("early release err = %v, want ErrStakeNotMatured", err)
	}

	matured := t0.Add(days(361))
	tx, err := l.ReleaseStake(stake.ID, matured)
	if err != nil {
		t.Fatalf("ReleaseStake: %v", err)
	}
	if tx.Type != TypePrincipalReturn {
		t.Errorf("type = %s, want principal return", tx.Type)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("returned %s, want 1000 at 1x multiplier", tx.Amount)
	}
	if !l.Balance().Equal(decimal.NewFromInt(5000)) {
		t.Errorf("balance = %s, want 5000", l.Balance())
	}
	if l.TotalStaked().Cmp(decimal.Zero) != 0 {
		t.Errorf("total staked = %s after release", l.TotalStaked())
	}

	if _, err := l.ReleaseStake(stake.ID, matured); !errors.Is(err, ErrStakeInactive) {
		t.Errorf("double release err = %v, want ErrStakeInactive", err)
	}
	if _, err := l.ReleaseStake("missing", matured); !errors.Is(err, ErrStakeNotFound) {
		t.Errorf("err = %v, want ErrStakeNotFound", err)
	}
}

func TestReleasedStakeStopsAccruing(t *testing.T) {
	l := newTestLedger(5000)
	stake, _, _ := l.OpenStake(decimal.NewFromInt(1000), t0)

	matured := t0.Add(days(361))
	l.SyncDividends(matured)
	if _, err := l.ReleaseStake(stake.ID, matured); err != nil {
		t.Fatalf("ReleaseStake: %v", err)
	}

	res := l.SyncDividends(matured.Add(days(90)))
	if !res.TotalDividends.IsZero() {
		t.Fatalf("inactive stake accrued %s", res.TotalDividends)
	}
}

func TestBalanceReplayInvariant(t *testing.T) {
	l := newTestLedger(5000)

	l.Deposit(decimal.NewFromInt(250), t0.Add(time.Hour))
	l.OpenStake(decimal.NewFromInt(1000), t0.Add(2*time.Hour))
	l.Withdraw(decimal.NewFromInt(300), testAddress, t0.Add(3*time.Hour))
	l.SyncDividends(t0.Add(days(40)))
	failed, _ := l.Withdraw(decimal.NewFromInt(100), testAddress, t0.Add(days(41)))
	l.SettleWithdrawal(failed.ID, false)

	if !l.Balance().Equal(replay(l.History())) {
		t.Fatalf("balance %s does not equal replay %s", l.Balance(), replay(l.History()))
	}
}

func TestDepositRejectsNonPositive(t *testing.T) {
	l := newTestLedger(100)
	for _, amt := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if _, err := l.Deposit(amt, t0); !errors.Is(err, money.ErrInvalidAmount) {
			t.Errorf("Deposit(%s) err = %v, want ErrInvalidAmount", amt, err)
		}
	}
	if !l.Balance().Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance changed to %s", l.Balance())
	}
}

func TestTransactionOrdering(t *testing.T) {
	l := newTestLedger(1000)
	l.Deposit(decimal.NewFromInt(10), t0.Add(1*time.Hour))
	l.Deposit(decimal.NewFromInt(20), t0.Add(2*time.Hour))

	hist := l.History()
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp.Before(hist[i-1].Timestamp) {
			t.Fatalf("chronological view out of order at %d", i)
		}
	}

	recent := l.Transactions()
	if len(recent) != len(hist) {
		t.Fatalf("views disagree on length")
	}
	for i := range recent {
		if recent[i].ID != hist[len(hist)-1-i].ID {
			t.Fatalf("display view is not the reverse of the chronological view")
		}
	}
}

func TestBalanceHistory(t *testing.T) {
	l := newTestLedger(1000)
	l.OpenStake(decimal.NewFromInt(400), t0.Add(time.Hour))
	l.Deposit(decimal.NewFromInt(100), t0.Add(2*time.Hour))

	series := l.BalanceHistory()
	if len(series) != 3 {
		t.Fatalf("series length = %d, want 3", len(series))
	}
	want := []int64{1000, 600, 700}
	for i, w := range want {
		if !series[i].Value.Equal(decimal.NewFromInt(w)) {
			t.Errorf("series[%d] = %s, want %d", i, series[i].Value, w)
		}
	}
	if !series[len(series)-1].Value.Equal(l.Balance()) {
		t.Errorf("series does not end at the current balance")
	}
}
