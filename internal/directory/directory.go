// Package directory is the account directory boundary: credential storage
// and lookup for user accounts. The ledger engine consumes it through the
// Directory interface and never touches credentials itself.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrAccountNotFound      = errors.New("account not found")
)

// Account is a registered user. The password hash never leaves the package
// boundary in API responses.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Directory creates and authenticates accounts. Implementations must
// guarantee email uniqueness.
type Directory interface {
	Create(ctx context.Context, email, password string) (*Account, error)
	Authenticate(ctx context.Context, email, password string) (*Account, error)
}
