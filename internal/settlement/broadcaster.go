package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Broadcaster signs and broadcasts an outbound transfer to a destination
// address. The actual signing happens in an external system; this side only
// submits the request and reports whether it was accepted.
type Broadcaster interface {
	Broadcast(ctx context.Context, txID, address string, amount decimal.Decimal) error
}

// GatewayClient submits withdrawal broadcasts to the payout gateway. With no
// URL configured every broadcast is accepted immediately.
type GatewayClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewGatewayClient initializes a new payout gateway client.
func NewGatewayClient(url string, log *logrus.Logger) *GatewayClient {
	return &GatewayClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// Broadcast submits the transfer for signing and broadcast.
func (c *GatewayClient) Broadcast(ctx context.Context, txID, address string, amount decimal.Decimal) error {
	if c.url == "" {
		c.log.Debugf("gateway not configured, accepting broadcast %s of %s to %s", txID, amount, address)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"transaction_id": txID,
		"address":        address,
		"amount":         amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode broadcast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/withdrawals/broadcast", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("broadcast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("broadcast rejected: status %d", resp.StatusCode)
	}
	return nil
}

var _ Broadcaster = (*GatewayClient)(nil)
