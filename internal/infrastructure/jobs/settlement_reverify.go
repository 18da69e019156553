package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chama-ledger.backend/pkg/logger"
)

// PendingReverifier re-checks gateway deposits that stayed pending
type PendingReverifier interface {
	ReverifyPending(ctx context.Context, limit int) (int, error)
}

// SettlementReverifyJob periodically asks the gateway about stale pending
// deposits. It never fails a row on a timer; only a gateway answer resolves it.
type SettlementReverifyJob struct {
	settlement PendingReverifier
	interval   time.Duration
	batchSize  int
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewSettlementReverifyJob creates the job
func NewSettlementReverifyJob(settlement PendingReverifier, interval time.Duration, batchSize int) *SettlementReverifyJob {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SettlementReverifyJob{
		settlement: settlement,
		interval:   interval,
		batchSize:  batchSize,
		stop:       make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called
func (j *SettlementReverifyJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting settlement re-verify job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Settlement re-verify job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Settlement re-verify job stopped")
			return
		case <-ticker.C:
			j.reverify(ctx)
		}
	}
}

// Stop ends the loop; safe to call more than once
func (j *SettlementReverifyJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *SettlementReverifyJob) reverify(ctx context.Context) {
	resolved, err := j.settlement.ReverifyPending(ctx, j.batchSize)
	if err != nil {
		logger.Error(ctx, "Error re-verifying pending deposits", zap.Error(err))
		return
	}
	if resolved > 0 {
		logger.Info(ctx, "Resolved pending deposits", zap.Int("count", resolved))
	}
}
