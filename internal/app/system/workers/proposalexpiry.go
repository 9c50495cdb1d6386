// internal/app/system/workers/proposalexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/civic/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Sweeper expires overdue proposals and reports how many it expired.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ProposalExpirySweeper is a background worker that expires proposals whose
// voting window has closed, so they resolve even when nobody reads them.
type ProposalExpirySweeper struct {
	sweeper  Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProposalExpirySweeper creates the worker.
//
// Parameters:
//   - sweeper: the governance engine
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
func NewProposalExpirySweeper(sweeper Sweeper, logger *zap.Logger, interval time.Duration) *ProposalExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalExpirySweeper{
		sweeper:  sweeper,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop. The first sweep runs immediately.
func (w *ProposalExpirySweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("proposal expiry sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for an in-flight sweep to finish.
// It is safe to call more than once.
func (w *ProposalExpirySweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("proposal expiry sweeper stopped")
	})
}

func (w *ProposalExpirySweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ProposalExpirySweeper) sweep() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Sweep(), w.log, "proposal expiry sweep")
	defer cancel()

	// Abandon the pass promptly on Stop.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	n, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.log.Error("proposal expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("expired overdue proposals", zap.Int("count", n))
	}
}
