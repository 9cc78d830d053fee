package settlement

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Job is one pending withdrawal waiting for broadcast.
type Job struct {
	AccountID     int64
	TransactionID string
	Address       string
	Amount        decimal.Decimal
}

// SettleFunc reconciles the pending withdrawal after the broadcast attempt.
type SettleFunc func(job Job, ok bool)

// Worker drains queued withdrawals in the background: each job is handed to
// the broadcaster, then settled through the callback as completed or failed.
type Worker struct {
	jobs        chan Job
	broadcaster Broadcaster
	settle      SettleFunc
	log         *logrus.Logger
}

// NewWorker creates a settlement worker. The settle callback runs on the
// worker goroutine.
func NewWorker(broadcaster Broadcaster, settle SettleFunc, log *logrus.Logger) *Worker {
	return &Worker{
		jobs:        make(chan Job, 64),
		broadcaster: broadcaster,
		settle:      settle,
		log:         log,
	}
}

// Enqueue hands a pending withdrawal to the worker. It never blocks the
// caller; if the queue is full the job is dropped and logged, leaving the
// entry Pending for a later reconciliation pass.
func (w *Worker) Enqueue(job Job) {
	select {
	case w.jobs <- job:
	default:
		w.log.Warnf("settlement queue full, withdrawal %s stays pending", job.TransactionID)
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		w.log.Info("Settlement worker started")
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Settlement worker stopped")
				return
			case job := <-w.jobs:
				w.process(ctx, job)
			}
		}
	}()
}

func (w *Worker) process(ctx context.Context, job Job) {
	err := w.broadcaster.Broadcast(ctx, job.TransactionID, job.Address, job.Amount)
	if err != nil {
		w.log.Errorf("Broadcast failed for withdrawal %s: %v", job.TransactionID, err)
	}
	w.settle(job, err == nil)
}
