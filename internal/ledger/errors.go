package ledger

import "errors"

// Domain errors returned by ledger operations. All preconditions are checked
// before any mutation, so a returned error means the ledger state and the
// transaction log are unchanged.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAddress      = errors.New("invalid destination address")
	ErrStakeNotFound       = errors.New("stake not found")
	ErrStakeNotMatured     = errors.New("stake has not matured")
	ErrStakeInactive       = errors.New("stake is not active")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotSettleable       = errors.New("transaction is not a pending withdrawal")
)
