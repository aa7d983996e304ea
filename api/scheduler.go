/*
scheduler.go - Supervised background sweep scheduler

PURPOSE:
  Runs the three periodic sweeps (penalty accrual, auto-lock, reminders) on
  a fixed interval and records one run record per sweep pass for audit and
  UI display.

DESIGN:
  - One background goroutine, one ticker for all three sweeps. Each tick
    runs the sweeps sequentially; the engine already fail-softs per account
    inside each sweep.
  - A sweep that fails wholesale (store down, list failed) is retried with
    doubling backoff up to maxSweepAttempts before the run is recorded as
    failed. The next tick starts fresh.
  - Run records go through the store's optional SweepRunStore capability;
    stores without it still run sweeps, just without the audit trail.

USAGE:
  scheduler := NewSweepScheduler(engine, 1*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual, single sweep)
  - loan/penalty.go, loan/autolock.go, loan/reminder.go: the sweeps
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/lending-engine/loan"
)

// Sweep names, shared by the scheduler, run records, and the admin trigger
// endpoint.
const (
	SweepPenalty  = "penalty"
	SweepAutoLock = "autolock"
	SweepReminder = "reminder"
)

const (
	maxSweepAttempts  = 3
	sweepRetryBackoff = 5 * time.Second
)

// SweepScheduler drives the periodic sweeps.
type SweepScheduler struct {
	Engine   *loan.Engine
	Interval time.Duration
	Enabled  bool

	runStore loan.SweepRunStore // nil when the store lacks the capability

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a scheduler over the engine's store. Interval
// defaults to one hour when non-positive.
func NewSweepScheduler(engine *loan.Engine, interval time.Duration) *SweepScheduler {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	runStore, _ := engine.Store.(loan.SweepRunStore)
	return &SweepScheduler{
		Engine:   engine,
		Interval: interval,
		Enabled:  true,
		runStore: runStore,
		stop:     make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with sweep interval: %v", s.Interval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow executes one full pass of all three sweeps.
func (s *SweepScheduler) RunNow() {
	ctx := context.Background()

	s.runSweep(ctx, SweepPenalty, func(ctx context.Context) (processed, failed int, err error) {
		deltas, failed, err := s.Engine.RunPenaltySweep(ctx)
		return len(deltas), failed, err
	})
	s.runSweep(ctx, SweepAutoLock, func(ctx context.Context) (processed, failed int, err error) {
		decisions, failed, err := s.Engine.RunAutoLockSweep(ctx)
		return len(decisions), failed, err
	})
	s.runSweep(ctx, SweepReminder, func(ctx context.Context) (processed, failed int, err error) {
		reminders, failed, err := s.Engine.RunReminderSweep(ctx)
		return len(reminders), failed, err
	})
}

// runSweep supervises one sweep: run record, retries with doubling backoff,
// completion record.
func (s *SweepScheduler) runSweep(ctx context.Context, name string, fn func(context.Context) (int, int, error)) {
	started := time.Now().UTC()
	run := loan.SweepRun{
		ID:        fmt.Sprintf("run-%s-%d", name, started.UnixNano()),
		Sweep:     name,
		StartedAt: started,
		Status:    "running",
	}
	s.saveRun(ctx, run)

	var (
		processed, failed int
		err               error
	)
	backoff := sweepRetryBackoff
	for attempt := 1; attempt <= maxSweepAttempts; attempt++ {
		processed, failed, err = fn(ctx)
		if err == nil {
			break
		}
		log.Printf("[Scheduler] %s sweep attempt %d/%d failed: %v", name, attempt, maxSweepAttempts, err)
		if attempt < maxSweepAttempts {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-s.stop:
				err = context.Canceled
				attempt = maxSweepAttempts
			}
		}
	}

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Processed = processed
	run.Failed = failed
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	} else {
		run.Status = "completed"
		log.Printf("[Scheduler] %s sweep completed: %d processed", name, processed)
	}
	s.saveRun(ctx, run)
}

func (s *SweepScheduler) saveRun(ctx context.Context, run loan.SweepRun) {
	if s.runStore == nil {
		return
	}
	if err := s.runStore.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Scheduler] Failed to save run record for %s: %v", run.Sweep, err)
	}
}

// NextRunTime returns when the next scheduled pass will occur.
func (s *SweepScheduler) NextRunTime() time.Time {
	return time.Now().Add(s.Interval)
}
