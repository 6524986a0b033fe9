package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/deadman-dev/deadman/internal/dispatch"
	"github.com/deadman-dev/deadman/internal/logger"
	"go.uber.org/zap"
)

// SweepFunc runs one expiry sweep at the given instant.
type SweepFunc func(ctx context.Context, now time.Time) (dispatch.Report, error)

// Scheduler invokes the sweep on a fixed interval. It is the thin
// orchestration layer around the dispatch engine; the engine itself carries
// no scheduling state.
type Scheduler struct {
	interval time.Duration
	sweep    SweepFunc
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(interval time.Duration, sweep SweepFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		interval: interval,
		sweep:    sweep,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs an immediate sweep (catching up on anything that became due
// while the process was down), then sweeps on every interval tick until Stop.
func (s *Scheduler) Start() {
	log := logger.Named("scheduler")
	log.Info("Starting sweep scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunNow()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.RunNow()
			}
		}
	}()
}

// RunNow executes a single sweep immediately. Safe to call alongside the
// scheduled sweeps; the engine's conditional status update bounds duplicate
// processing.
func (s *Scheduler) RunNow() {
	log := logger.Named("scheduler")

	report, err := s.sweep(s.ctx, time.Now())

	if err != nil {
		log.Error("Sweep failed", zap.Error(err))
		return
	}

	log.Info("Sweep completed",
		zap.Int("attempted", report.Attempted),
		zap.Int("triggered", report.Triggered),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
}

// Stop cancels the sweep loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	logger.Named("scheduler").Info("Stopping sweep scheduler")
	s.cancel()
	s.wg.Wait()
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler.
func Initialize(interval time.Duration, sweep SweepFunc) {
	globalScheduler = New(interval, sweep)
	globalScheduler.Start()
}

// Shutdown stops the global scheduler.
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}
