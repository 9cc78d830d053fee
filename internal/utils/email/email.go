package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/quantumleap-finance/staking-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendTransactionNotification sends a notification email for a deposit or
// withdrawal request
func (s *Sender) SendTransactionNotification(to string, amount, balance string, transactionType string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("%s Notification", transactionType)

	body := fmt.Sprintf("Dear %s,\n\n", to)
	if transactionType == "Deposit" {
		body += fmt.Sprintf(
			"Your deposit of %s USDT has been confirmed.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s USDT\n",
			amount, time.Now().Format("2006-01-02 15:04:05"), balance,
		)
	} else {
		body += fmt.Sprintf(
			"Your withdrawal request for %s USDT has been received and is pending settlement.\n"+
				"Transaction time: %s\n"+
				"Current balance: %s USDT\n",
			amount, time.Now().Format("2006-01-02 15:04:05"), balance,
		)
	}
	body += "\nBest regards,\nQuantumLeap Staking"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send %s notification to %s: %v", transactionType, to, err)
		return fmt.Errorf("failed to send %s notification: %w", transactionType, err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendDividendNotification sends a notification email for a dividend payout
func (s *Sender) SendDividendNotification(to string, amount, balance string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Dividend Payout Notification"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Dividends of %s USDT have been credited to your account.\n"+
			"Current balance: %s USDT\n"+
			"\nBest regards,\nQuantumLeap Staking",
		to, amount, balance,
	)
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send dividend notification to %s: %v", to, err)
		return fmt.Errorf("failed to send dividend notification: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	return e.Send(addr, auth)
}
