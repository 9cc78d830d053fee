package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the economic effect of a ledger entry.
type TransactionType string

const (
	TypeDeposit         TransactionType = "Deposit"
	TypeWithdrawal      TransactionType = "Withdrawal"
	TypeStake           TransactionType = "Stake"
	TypeDividendPayout  TransactionType = "Dividend Payout"
	TypePrincipalReturn TransactionType = "Stake Principal Return"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "Completed"
	StatusPending   TransactionStatus = "Pending"
	StatusFailed    TransactionStatus = "Failed"
)

// Transaction is a single entry in the account's append-only log.
// Entries are immutable once appended, with one exception: a Pending
// withdrawal may transition to Completed or Failed when its external
// settlement is reconciled.
type Transaction struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      TransactionType   `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	Details   string            `json:"details,omitempty"`
}

// credit reports whether the entry increases the available balance.
func (t Transaction) credit() bool {
	switch t.Type {
	case TypeDeposit, TypeDividendPayout, TypePrincipalReturn:
		return true
	}
	return false
}

// Stake is a locked principal accruing monthly dividends for a fixed term.
type Stake struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	StartTime     time.Time       `json:"start_time"`
	DividendsPaid decimal.Decimal `json:"dividends_paid"`
	IsActive      bool            `json:"is_active"`
}
