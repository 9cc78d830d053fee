// Package settlement holds the external on-chain boundaries: deposit
// verification, withdrawal broadcast, and the worker that reconciles
// pending withdrawals. Real chain access sits behind these interfaces; the
// HTTP clients here speak to an explorer/gateway service and make no
// guarantees beyond well-formed requests.
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

// DepositVerifier confirms that funds for a deposit actually arrived
// on-chain before the ledger credits them.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, accountEmail string, amount decimal.Decimal) error
}

// ExplorerClient verifies deposits against a chain explorer gateway. With no
// URL configured it accepts every deposit, which keeps local development and
// tests off the network.
type ExplorerClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewExplorerClient initializes a new explorer client.
func NewExplorerClient(url string, log *logrus.Logger) *ExplorerClient {
	return &ExplorerClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// VerifyDeposit asks the explorer gateway to confirm receipt of the amount.
func (c *ExplorerClient) VerifyDeposit(ctx context.Context, accountEmail string, amount decimal.Decimal) error {
	if c.url == "" {
		c.log.Debugf("explorer not configured, accepting deposit of %s for %s", amount, accountEmail)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"account": accountEmail,
		"amount":  amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/deposits/verify", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deposit not confirmed: status %d", resp.StatusCode)
	}
	return nil
}

var _ DepositVerifier = (*ExplorerClient)(nil)
