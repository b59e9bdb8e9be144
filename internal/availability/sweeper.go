package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SweepResult reports how many lock rows each sweep removed.
type SweepResult struct {
	StaleRemoved int64 `json:"stale_removed"`
	OldRemoved   int64 `json:"old_removed"`
}

// Sweeper periodically reclaims abandoned availability locks. The stale
// sweep runs every interval; the old-lock sweep piggybacks on the same
// loop once per 24 hours.
type Sweeper struct {
	manager       *LockManager
	clock         clockwork.Clock
	interval      time.Duration
	oldSweepEvery time.Duration
	logger        *slog.Logger

	// mu guards lastOldSweep: RunOnce is called from both the background
	// loop and the maintenance endpoint.
	mu           sync.Mutex
	lastOldSweep time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSweeper creates a sweeper that runs the stale sweep every interval and
// the old-lock sweep once every 24 hours.
func NewSweeper(
	manager *LockManager,
	clock clockwork.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		manager:       manager,
		clock:         clock,
		interval:      interval,
		oldSweepEvery: 24 * time.Hour,
		logger:        logger.With("component", "lock_sweeper"),
		ctx:           ctx,
		cancelFunc:    cancel,
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop shuts the sweep loop down and waits for it to exit.
func (s *Sweeper) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

// RunOnce executes the stale sweep, plus the old-lock sweep when its cadence
// is due, and returns the removal counts. It is also the handler behind the
// maintenance endpoint so an external scheduler can drive sweeps instead.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	staleRemoved, err := s.manager.SweepStale(ctx)
	if err != nil {
		return result, err
	}
	result.StaleRemoved = staleRemoved

	now := s.clock.Now()
	if s.oldSweepDue(now) {
		oldRemoved, err := s.manager.SweepOld(ctx)
		if err != nil {
			return result, err
		}
		result.OldRemoved = oldRemoved
	}

	return result, nil
}

// oldSweepDue reports whether the old-lock cadence has elapsed and, if so,
// claims the slot so concurrent callers run the old sweep at most once per
// cadence.
func (s *Sweeper) oldSweepDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastOldSweep.IsZero() && now.Sub(s.lastOldSweep) < s.oldSweepEvery {
		return false
	}

	s.lastOldSweep = now
	return true
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.Chan():
			if _, err := s.RunOnce(s.ctx); err != nil {
				s.logger.Error("lock sweep failed", "error", err)
			}
		}
	}
}
