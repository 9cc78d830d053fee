package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantumleap-finance/staking-service/internal/directory"
	"github.com/quantumleap-finance/staking-service/internal/events"
	"github.com/quantumleap-finance/staking-service/internal/ledger"
	"github.com/quantumleap-finance/staking-service/internal/money"
	"github.com/quantumleap-finance/staking-service/internal/session"
	"github.com/quantumleap-finance/staking-service/internal/settlement"
	"github.com/quantumleap-finance/staking-service/internal/statement"
	emailutil "github.com/quantumleap-finance/staking-service/internal/utils/email"
)

// Service handles business logic: it authenticates against the account
// directory, routes every wallet and staking operation through the session's
// ledger, and fans committed entries out to events and notifications.
type Service struct {
	dir       directory.Directory
	sessions  *session.Manager
	verifier  settlement.DepositVerifier
	worker    *settlement.Worker
	publisher events.Publisher
	topic     string
	mailer    *emailutil.Sender
	log       *logrus.Logger
}

// Summary is the read-only account overview.
type Summary struct {
	Email          string             `json:"email"`
	Balance        decimal.Decimal    `json:"balance"`
	TotalStaked    decimal.Decimal    `json:"total_staked"`
	TotalDividends decimal.Decimal    `json:"total_dividends"`
	ActiveStakes   int                `json:"active_stakes"`
	Plan           ledger.Plan        `json:"plan"`
	Stakes         []ledger.StakeView `json:"stakes"`
}

// NewService initializes a new service. The mailer may be nil when SMTP is
// not configured; notifications are best-effort either way.
func NewService(dir directory.Directory, sessions *session.Manager, verifier settlement.DepositVerifier,
	broadcaster settlement.Broadcaster, publisher events.Publisher, topic string,
	mailer *emailutil.Sender, log *logrus.Logger) *Service {

	s := &Service{
		dir:       dir,
		sessions:  sessions,
		verifier:  verifier,
		publisher: publisher,
		topic:     topic,
		mailer:    mailer,
		log:       log,
	}
	s.worker = settlement.NewWorker(broadcaster, s.settleJob, log)
	return s
}

// StartWorker launches the background settlement worker.
func (s *Service) StartWorker(ctx context.Context) {
	s.worker.Start(ctx)
}

// ErrInvalidRegistration rejects malformed signup input before it reaches
// the directory.
var ErrInvalidRegistration = errors.New("email must be valid and password at least 6 characters")

// Register creates a new directory account.
func (s *Service) Register(ctx context.Context, email, password string) (*directory.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidRegistration
	}
	if len(password) < 6 {
		return nil, ErrInvalidRegistration
	}

	acc, err := s.dir.Create(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Account registered: %s", acc.Email)
	return acc, nil
}

// Login authenticates the account and opens its session, returning a signed
// bearer token.
func (s *Service) Login(ctx context.Context, email, password string, now time.Time) (string, *session.Session, error) {
	acc, err := s.dir.Authenticate(ctx, strings.TrimSpace(strings.ToLower(email)), password)
	if err != nil {
		return "", nil, err
	}
	sess, token, err := s.sessions.Open(acc, now)
	if err != nil {
		return "", nil, err
	}
	s.log.Infof("User logged in: %s", acc.Email)
	return token, sess, nil
}

// Logout ends the account's session and discards its ledger state.
func (s *Service) Logout(accountID int64) {
	s.sessions.Close(accountID)
}

// Session resolves the live session for an authenticated account ID.
func (s *Service) Session(accountID int64) (*session.Session, error) {
	return s.sessions.Get(accountID)
}

// Deposit credits the account after the external verifier confirms on-chain
// receipt.
func (s *Service) Deposit(ctx context.Context, sess *session.Session, amount string, now time.Time) (ledger.Transaction, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.verifier.VerifyDeposit(ctx, sess.Account.Email, amt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("deposit verification failed: %w", err)
	}

	t, err := sess.Ledger.Deposit(amt, now)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.log.Infof("Deposit of %s confirmed for %s", amt, sess.Account.Email)
	s.publish(sess.Account.ID, t)
	s.notifyTransaction(sess, t, "Deposit")
	return t, nil
}

// Withdraw debits the account optimistically and queues the withdrawal for
// broadcast; the entry stays Pending until settlement reconciles it.
func (s *Service) Withdraw(ctx context.Context, sess *session.Session, amount, address string, now time.Time) (ledger.Transaction, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return ledger.Transaction{}, err
	}

	t, err := sess.Ledger.Withdraw(amt, address, now)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.log.Infof("Withdrawal of %s requested by %s", amt, sess.Account.Email)
	s.publish(sess.Account.ID, t)
	s.notifyTransaction(sess, t, "Withdrawal")

	s.worker.Enqueue(settlement.Job{
		AccountID:     sess.Account.ID,
		TransactionID: t.ID,
		Address:       address,
		Amount:        amt,
	})
	return t, nil
}

// OpenStake locks part of the balance into a new stake.
func (s *Service) OpenStake(sess *session.Session, amount string, now time.Time) (ledger.Stake, error) {
	amt, err := money.Parse(amount)
	if err != nil {
		return ledger.Stake{}, err
	}

	stake, t, err := sess.Ledger.OpenStake(amt, now)
	if err != nil {
		return ledger.Stake{}, err
	}
	s.log.Infof("Stake of %s opened by %s", amt, sess.Account.Email)
	s.publish(sess.Account.ID, t)
	return stake, nil
}

// SyncDividends accrues the session's active stakes up to now.
func (s *Service) SyncDividends(sess *session.Session, now time.Time) ledger.SyncResult {
	res := sess.Ledger.SyncDividends(now)
	if res.Transaction == nil {
		return res
	}
	s.log.Infof("Dividends of %s credited to %s", res.TotalDividends, sess.Account.Email)
	s.publish(sess.Account.ID, *res.Transaction)
	if s.mailer != nil {
		if err := s.mailer.SendDividendNotification(sess.Account.Email,
			res.TotalDividends.String(), sess.Ledger.Balance().String()); err != nil {
			s.log.Debugf("Dividend notification skipped: %v", err)
		}
	}
	return res
}

// SyncAll runs the dividend sync for every live session. The scheduler
// calls this on its cron cadence.
func (s *Service) SyncAll(now time.Time) {
	s.sessions.Each(func(sess *session.Session) {
		s.SyncDividends(sess, now)
	})
}

// SettleWithdrawal reconciles a pending withdrawal's external settlement.
func (s *Service) SettleWithdrawal(sess *session.Session, txID string, ok bool) (ledger.Transaction, error) {
	t, err := sess.Ledger.SettleWithdrawal(txID, ok)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.log.Infof("Withdrawal %s settled as %s for %s", txID, t.Status, sess.Account.Email)
	s.publish(sess.Account.ID, t)
	return t, nil
}

// ReleaseStake returns a matured stake's principal (times the plan's return
// multiplier) to the available balance.
func (s *Service) ReleaseStake(sess *session.Session, stakeID string, now time.Time) (ledger.Transaction, error) {
	t, err := sess.Ledger.ReleaseStake(stakeID, now)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.log.Infof("Stake %s released for %s", stakeID, sess.Account.Email)
	s.publish(sess.Account.ID, t)
	return t, nil
}

// Summary builds the account overview shown on the dashboard.
func (s *Service) Summary(sess *session.Session, now time.Time) Summary {
	return Summary{
		Email:          sess.Account.Email,
		Balance:        sess.Ledger.Balance(),
		TotalStaked:    sess.Ledger.TotalStaked(),
		TotalDividends: sess.Ledger.TotalDividends(),
		ActiveStakes:   countActive(sess.Ledger.Stakes(now)),
		Plan:           sess.Ledger.Plan(),
		Stakes:         sess.Ledger.Stakes(now),
	}
}

// Statement renders the account's transaction history as an XML export.
func (s *Service) Statement(sess *session.Session, now time.Time) ([]byte, error) {
	return statement.Render(sess.Account.Email, sess.Ledger.History(),
		sess.Ledger.Balance().String(), now)
}

// settleJob is the settlement worker's callback. A session that ended while
// the job was queued leaves the entry Pending; nothing to reconcile against.
func (s *Service) settleJob(job settlement.Job, ok bool) {
	sess, err := s.sessions.Get(job.AccountID)
	if err != nil {
		s.log.Warnf("No session for settlement of withdrawal %s", job.TransactionID)
		return
	}
	if _, err := s.SettleWithdrawal(sess, job.TransactionID, ok); err != nil {
		s.log.Errorf("Failed to settle withdrawal %s: %v", job.TransactionID, err)
	}
}

func (s *Service) publish(accountID int64, t ledger.Transaction) {
	err := s.publisher.Publish(s.topic, events.TransactionRecorded{
		TransactionID: t.ID,
		AccountID:     accountID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Status:        string(t.Status),
		OccurredAt:    t.Timestamp,
	})
	if err != nil {
		s.log.Errorf("Failed to publish transaction event %s: %v", t.ID, err)
	}
}

func (s *Service) notifyTransaction(sess *session.Session, t ledger.Transaction, kind string) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.SendTransactionNotification(sess.Account.Email,
		t.Amount.String(), sess.Ledger.Balance().String(), kind)
	if err != nil {
		s.log.Debugf("%s notification skipped: %v", kind, err)
	}
}

func countActive(stakes []ledger.StakeView) int {
	n := 0
	for _, s := range stakes {
		if s.IsActive {
			n++
		}
	}
	return n
}

// IsDomainError reports whether err is a recoverable domain error the
// handler should map to a 4xx response.
func IsDomainError(err error) bool {
	switch {
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidAddress),
		errors.Is(err, ledger.ErrStakeNotFound),
		errors.Is(err, ledger.ErrStakeNotMatured),
		errors.Is(err, ledger.ErrStakeInactive),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrNotSettleable),
		errors.Is(err, directory.ErrDuplicateAccount),
		errors.Is(err, directory.ErrAuthenticationFailed),
		errors.Is(err, ErrInvalidRegistration):
		return true
	}
	return false
}
