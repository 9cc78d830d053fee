// Package ledger implements the account ledger and dividend accrual engine:
// one user's balance, active stakes and append-only transaction log, with
// deterministic prorated dividend accrual over 30-day periods.
//
// Every operation is atomic: preconditions are checked before any mutation,
// and a balance change is always committed together with exactly one log
// entry describing it. A single mutex preserves the one-writer-at-a-time
// discipline the engine relies on.
package ledger

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantumleap-finance/staking-service/internal/money"
)

// addressPattern is the format check for payout addresses: 0x followed by
// 40 hex characters. No on-chain validation happens here.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Ledger owns one account's balance, stakes and transaction log. It is the
// sole mutator of all three.
type Ledger struct {
	mu      sync.Mutex
	plan    Plan
	balance decimal.Decimal
	stakes  []Stake
	log     TransactionLog
}

// BalancePoint is one step of the reconstructed portfolio value series.
type BalancePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// StakeView is a stake together with its progress toward maturity.
type StakeView struct {
	Stake
	Progress float64 `json:"progress"`
}

// SyncResult reports the outcome of a dividend synchronization.
type SyncResult struct {
	TotalDividends decimal.Decimal
	Transaction    *Transaction
}

// New creates a ledger with a starting balance. A non-zero starting balance
// is recorded as an initial deposit entry so the log replays to the balance.
func New(plan Plan, initial decimal.Decimal, now time.Time) *Ledger {
	l := &Ledger{plan: plan, balance: decimal.Zero}
	if money.IsPositive(initial) {
		l.balance = initial
		l.log.Append(Transaction{
			ID:        uuid.NewString(),
			Timestamp: now,
			Type:      TypeDeposit,
			Amount:    initial,
			Status:    StatusCompleted,
			Details:   "Initial Balance",
		})
	}
	return l
}

// Plan returns the staking plan the ledger accrues under.
func (l *Ledger) Plan() Plan {
	return l.plan
}

// Deposit credits a positive amount and records a completed deposit entry.
// Verification that funds actually arrived is the caller's concern; for a
// positive amount the operation never fails.
func (l *Ledger) Deposit(amount decimal.Decimal, now time.Time) (Transaction, error) {
	if err := money.RequirePositive(amount); err != nil {
		return Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance = l.balance.Add(amount)
	t := Transaction{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      TypeDeposit,
		Amount:    amount,
		Status:    StatusCompleted,
	}
	l.log.Append(t)
	return t, nil
}

// Withdraw debits the balance optimistically and records a pending
// withdrawal to the given address. Settlement happens off-system; the entry
// stays Pending until SettleWithdrawal reconciles it.
func (l *Ledger) Withdraw(amount decimal.Decimal, address string, now time.Time) (Transaction, error) {
	if err := money.RequirePositive(amount); err != nil {
		return Transaction{}, err
	}
	if !addressPattern.MatchString(address) {
		return Transaction{}, ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.Cmp(amount) < 0 {
		return Transaction{}, ErrInsufficientBalance
	}
	l.balance = l.balance.Sub(amount)
	t := Transaction{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      TypeWithdrawal,
		Amount:    amount,
		Status:    StatusPending,
		Details:   "To address: " + address,
	}
	l.log.Append(t)
	return t, nil
}

// OpenStake locks a positive amount into a new active stake and records a
// completed stake entry. The principal leaves the available balance.
func (l *Ledger) OpenStake(amount decimal.Decimal, now time.Time) (Stake, Transaction, error) {
	if err := money.RequirePositive(amount); err != nil {
		return Stake{}, Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.Cmp(amount) < 0 {
		return Stake{}, Transaction{}, ErrInsufficientBalance
	}
	l.balance = l.balance.Sub(amount)
	s := Stake{
		ID:            uuid.NewString(),
		Amount:        amount,
		StartTime:     now,
		DividendsPaid: decimal.Zero,
		IsActive:      true,
	}
	l.stakes = append(l.stakes, s)
	t := Transaction{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      TypeStake,
		Amount:    amount,
		Status:    StatusCompleted,
	}
	l.log.Append(t)
	return s, t, nil
}

// SyncDividends accrues every active stake up to now and credits the total
// in one batch. All per-stake accruals are aggregated into a single dividend
// payout entry to keep the log readable; if nothing accrued, no entry is
// appended and the balance is untouched. Idempotent for a fixed now, and a
// now earlier than a previous run accrues zero rather than clawing back.
func (l *Ledger) SyncDividends(now time.Time) SyncResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for i := range l.stakes {
		if !l.stakes[i].IsActive {
			continue
		}
		acc := l.plan.Accrue(l.stakes[i], now)
		if money.IsPositive(acc.NewlyOwed) {
			total = total.Add(acc.NewlyOwed)
			l.stakes[i].DividendsPaid = acc.DividendsPaid
		}
	}
	if !money.IsPositive(total) {
		return SyncResult{TotalDividends: decimal.Zero}
	}
	l.balance = l.balance.Add(total)
	t := Transaction{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      TypeDividendPayout,
		Amount:    total,
		Status:    StatusCompleted,
	}
	l.log.Append(t)
	return SyncResult{TotalDividends: total, Transaction: &t}
}

// ReleaseStake unlocks a matured stake: the principal times the plan's
// return multiplier is credited back, the stake is deactivated and a
// principal return entry is recorded. Releasing before maturity is refused.
func (l *Ledger) ReleaseStake(id string, now time.Time) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s *Stake
	for i := range l.stakes {
		if l.stakes[i].ID == id {
			s = &l.stakes[i]
			break
		}
	}
	if s == nil {
		return Transaction{}, ErrStakeNotFound
	}
	if !s.IsActive {
		return Transaction{}, ErrStakeInactive
	}
	if !l.plan.Matured(s.StartTime, now) {
		return Transaction{}, ErrStakeNotMatured
	}
	amount := s.Amount.Mul(l.plan.ReturnMultiplier)
	s.IsActive = false
	l.balance = l.balance.Add(amount)
	t := Transaction{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      TypePrincipalReturn,
		Amount:    amount,
		Status:    StatusCompleted,
	}
	l.log.Append(t)
	return t, nil
}

// SettleWithdrawal reconciles the external settlement of a pending
// withdrawal. On success the entry becomes Completed. On failure the entry
// becomes Failed and the optimistically debited amount is credited back, so
// the balance again equals the replay of non-failed entries.
func (l *Ledger) SettleWithdrawal(txID string, ok bool) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.log.find(txID)
	if t == nil {
		return Transaction{}, ErrTransactionNotFound
	}
	if t.Type != TypeWithdrawal || t.Status != StatusPending {
		return Transaction{}, ErrNotSettleable
	}
	if ok {
		t.Status = StatusCompleted
	} else {
		t.Status = StatusFailed
		l.balance = l.balance.Add(t.Amount)
	}
	return *t, nil
}

// Balance returns the available, unlocked balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Stakes returns every stake, newest last, with progress toward maturity.
func (l *Ledger) Stakes(now time.Time) []StakeView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StakeView, len(l.stakes))
	for i, s := range l.stakes {
		out[i] = StakeView{Stake: s, Progress: l.plan.Progress(s.StartTime, now)}
	}
	return out
}

// TotalStaked sums the principal locked in active stakes.
func (l *Ledger) TotalStaked() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, s := range l.stakes {
		if s.IsActive {
			total = total.Add(s.Amount)
		}
	}
	return total
}

// TotalDividends sums the dividends ever credited across all stakes.
func (l *Ledger) TotalDividends() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, s := range l.stakes {
		total = total.Add(s.DividendsPaid)
	}
	return total
}

// Transactions returns the log newest-first for display.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log.Recent()
}

// History returns the log in true chronological order.
func (l *Ledger) History() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log.Chronological()
}

// BalanceHistory replays the log chronologically into a running available
// balance series. Failed entries never contributed funds, so they are
// skipped.
func (l *Ledger) BalanceHistory() []BalancePoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	running := decimal.Zero
	out := make([]BalancePoint, 0, l.log.Len())
	for _, t := range l.log.Chronological() {
		if t.Status == StatusFailed {
			continue
		}
		if t.credit() {
			running = running.Add(t.Amount)
		} else {
			running = running.Sub(t.Amount)
		}
		out = append(out, BalancePoint{Timestamp: t.Timestamp, Value: running})
	}
	return out
}
