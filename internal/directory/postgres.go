package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// uniqueViolation is the Postgres error code raised by the unique index on
// accounts.email.
const uniqueViolation = "23505"

// PostgresDirectory stores accounts in Postgres.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory initializes a directory backed by the given database.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Create registers a new account with a bcrypt-hashed password.
func (d *PostgresDirectory) Create(ctx context.Context, email, password string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := &Account{Email: email, PasswordHash: string(hash)}
	query := `
		INSERT INTO staking.accounts (email, password_hash, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err = d.db.QueryRowContext(ctx, query, acc.Email, acc.PasswordHash).
		Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// Authenticate verifies credentials against the stored hash. A missing
// account and a wrong password are indistinguishable to the caller.
func (d *PostgresDirectory) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc := &Account{}
	query := `
		SELECT id, email, password_hash, created_at
		FROM staking.accounts
		WHERE email = $1`
	err := d.db.QueryRowContext(ctx, query, email).
		Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return acc, nil
}

var _ Directory = (*PostgresDirectory)(nil)
