// Package events publishes ledger activity to downstream consumers.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Publisher delivers an event to a topic. Delivery is best-effort from the
// ledger's point of view: a publish failure never rolls back a committed
// operation.
type Publisher interface {
	Publish(topic string, event any) error
}

// TransactionRecorded is emitted after every committed ledger entry.
type TransactionRecorded struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(topic string, event any) error { return nil }

var _ Publisher = NoopPublisher{}
