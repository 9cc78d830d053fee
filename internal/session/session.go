// Package session scopes one authenticated account to one ledger. The
// original design kept the current user in ambient global state; here a
// Session is an explicit value looked up per request, and the account's
// ledger lives exactly as long as its session.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/quantumleap-finance/staking-service/internal/directory"
	"github.com/quantumleap-finance/staking-service/internal/ledger"
)

// ErrNoSession is returned when no live session exists for an account.
var ErrNoSession = errors.New("no active session")

// Session binds an authenticated account to its ledger.
type Session struct {
	Account   directory.Account
	Ledger    *ledger.Ledger
	CreatedAt time.Time
}

// Manager owns the live sessions and signs the JWTs that reference them.
// The ledger state is session-scoped: it is created on login and dropped on
// logout, never persisted.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	secret   string
	tokenTTL time.Duration
	plan     ledger.Plan
	initial  decimal.Decimal
}

// NewManager creates a session manager. Every new session's ledger starts
// with the configured initial balance under the given plan.
func NewManager(secret string, plan ledger.Plan, initial decimal.Decimal) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		secret:   secret,
		tokenTTL: 24 * time.Hour,
		plan:     plan,
		initial:  initial,
	}
}

// Open starts (or resumes) a session for the account and returns it with a
// signed bearer token. A live session keeps its ledger across repeat logins.
func (m *Manager) Open(acc *directory.Account, now time.Time) (*Session, string, error) {
	m.mu.Lock()
	s, ok := m.sessions[acc.ID]
	if !ok {
		s = &Session{
			Account:   *acc,
			Ledger:    ledger.New(m.plan, m.initial, now),
			CreatedAt: now,
		}
		m.sessions[acc.ID] = s
	}
	m.mu.Unlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", acc.ID),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, signed, nil
}

// Get returns the live session for an account.
func (m *Manager) Get(accountID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[accountID]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Close ends the account's session and discards its ledger.
func (m *Manager) Close(accountID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accountID)
}

// Each visits every live session, for batch work such as the scheduled
// dividend sync.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		fn(s)
	}
}
