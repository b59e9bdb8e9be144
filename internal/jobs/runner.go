package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// StuckJobAge defines how long a job can sit in processing state before
	// it is considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes.
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background reconciliation processing. Jobs are persisted
// before they are enqueued, so instructions accepted before a crash are
// recovered and requeued on startup. Workers drain a shared in-memory
// queue; per-user serialization comes from the availability lock, not
// from the queue.
type Runner struct {
	store      JobStore
	factory    JobFactory
	queue      *JobQueue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewRunner creates a new Runner
func NewRunner(
	store JobStore,
	factory JobFactory,
	config RunnerConfig,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		factory:    factory,
		queue:      NewJobQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		clock:      clock,
		logger:     logger,
	}
}

// Submit persists a job and adds it to the queue. The database write comes
// first so an instruction is never lost between accept and execution.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.store.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.queue.Enqueue(job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Start recovers unfinished jobs and begins processing. Recovery runs
// exactly once, before any worker starts, so a recovered instruction can
// never be requeued while a worker is already executing it.
func (r *Runner) Start() error {
	if err := r.recoverUnfinished(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
}

// recoverUnfinished loads unfinished jobs from the database and requeues
// them. Processing jobs are reset to pending first; re-running them is safe
// because the rebuild is idempotent. Only Start may call this: recovering
// after workers are running would requeue rows that are mid-execution.
func (r *Runner) recoverUnfinished() error {
	ctx := context.Background()

	pending, err := r.store.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.GetProcessing(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, record := range pending {
		r.requeueRecord(ctx, record, false)
	}

	for _, record := range processing {
		r.requeueRecord(ctx, record, true)
	}

	return nil
}

// requeueRecord rehydrates a stored record and puts it back on the queue.
func (r *Runner) requeueRecord(ctx context.Context, record *JobRecord, resetStatus bool) {
	log := r.logger.With("job_id", record.ID, "job_type", record.Type)

	job, err := r.factory.FromRecord(record)
	if err != nil {
		log.Error("failed to rehydrate job, marking failed", "error", err)
		if updateErr := r.store.UpdateStatus(ctx, record.ID, JobStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark unrecoverable job as failed", "error", updateErr)
		}
		return
	}

	if resetStatus {
		if err := r.store.UpdateStatus(ctx, record.ID, JobStatusPending, "Reset after recovery"); err != nil {
			log.Error("failed to reset processing job status", "error", err)
			return
		}
	}

	if err := r.queue.Enqueue(job); err != nil {
		log.Error("failed to requeue job", "error", err)
	}
}

// worker processes jobs from the queue. Workers consume through the
// JobQueueReader side of the queue and never enqueue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	var reader JobQueueReader = r.queue

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-reader.GetChannel():
			if !ok {
				r.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}

			r.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job
func (r *Runner) processJob(job Job, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateStatus(ctx, job.ID(), JobStatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	err := job.Execute(ctx)

	if err != nil {
		logger.Error("job execution failed", "error", err)
		if updateErr := r.store.UpdateStatus(ctx, job.ID(), JobStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}
		return
	}

	logger.Info("job completed successfully")
	if updateErr := r.store.UpdateStatus(ctx, job.ID(), JobStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update job status to completed", "error", updateErr)
	}
}

// stuckJobMonitor periodically resets and requeues jobs that have sat in
// processing state for too long.
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.Chan():
			ctx := context.Background()

			stuck, err := r.store.GetProcessing(ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}

			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck jobs", "count", len(stuck))

			for _, record := range stuck {
				r.requeueRecord(ctx, record, true)
			}
		}
	}
}
