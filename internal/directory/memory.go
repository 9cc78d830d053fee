package directory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemoryDirectory is an in-memory Directory, used in tests and when no
// database is configured.
type MemoryDirectory struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*Account
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[string]*Account)}
}

func (d *MemoryDirectory) Create(ctx context.Context, email, password string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[email]; exists {
		return nil, ErrDuplicateAccount
	}
	d.nextID++
	acc := &Account{
		ID:           d.nextID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	d.accounts[email] = acc
	cp := *acc
	return &cp, nil
}

func (d *MemoryDirectory) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	d.mu.Lock()
	acc, ok := d.accounts[email]
	d.mu.Unlock()
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	cp := *acc
	return &cp, nil
}

var _ Directory = (*MemoryDirectory)(nil)
