// Package money provides amount parsing and validation helpers on top of
// shopspring/decimal. All balances, stake principals and transaction amounts
// in the service are decimal.Decimal values produced through this package,
// so floating-point drift never enters the ledger.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for non-numeric or non-positive amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse converts a user-supplied amount string into a decimal, requiring it
// to be a positive number.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !IsPositive(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// IsPositive reports whether d is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Cmp(decimal.Zero) > 0
}

// RequirePositive validates an already-parsed amount.
func RequirePositive(d decimal.Decimal) error {
	if !IsPositive(d) {
		return ErrInvalidAmount
	}
	return nil
}
