// Package scheduler runs the periodic dividend synchronization. Accrual is
// deterministic and idempotent, so the cadence only affects how promptly
// dividends show up, never how much is paid.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/quantumleap-finance/staking-service/internal/service"
)

type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New registers the dividend sync job under the given cron spec
// (e.g. "@every 10m").
func New(spec string, svc *service.Service, log *logrus.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		log.Debug("Running scheduled dividend sync")
		svc.SyncAll(time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid dividend sync spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Dividend sync scheduler started")
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
