// Package scheduler drives the job lifecycle: it polls the store for due
// jobs on a fixed interval and hands them to the processor one at a time.
// It uses robfig/cron/v3 for the poll and cleanup entries.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/logger"
)

// Config holds the scheduler intervals.
type Config struct {
	PollInterval    time.Duration // how often due jobs are fetched
	InterJobDelay   time.Duration // pause between consecutive jobs in one tick
	CleanupInterval time.Duration // how often downloaded media is swept
	CleanupMaxAge   time.Duration // media older than this is removed
}

// JobSource is the slice of the store the scheduler needs.
type JobSource interface {
	GetDueJobs(ctx context.Context, now time.Time) ([]*job.Job, error)
	ListByStatus(ctx context.Context, status job.Status) ([]*job.Job, error)
}

// JobRunner processes one job to a terminal state.
type JobRunner interface {
	Process(ctx context.Context, j *job.Job) error
}

// TempCleaner removes stale downloaded media files.
type TempCleaner interface {
	CleanupOld(maxAge time.Duration) (int, error)
}

// Scheduler owns the poll and cleanup cron entries.
type Scheduler struct {
	cfg     Config
	source  JobSource
	runner  JobRunner
	cleaner TempCleaner
	logger  *logger.Logger

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	// tickMu guards against overlapping ticks: if a batch is still
	// running when the next poll fires, the poll is skipped.
	tickMu sync.Mutex
}

// New creates a scheduler. The cleaner may be nil to disable the sweep.
func New(cfg Config, source JobSource, runner JobRunner, cleaner TempCleaner, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		source:  source,
		runner:  runner,
		cleaner: cleaner,
		logger:  log,
		cron:    cron.New(),
	}
}

// Start registers the cron entries and begins polling. It returns
// immediately; the entries run until the context is cancelled or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.warnStaleProcessing(ctx)

	s.ctx, s.cancel = context.WithCancel(ctx)

	pollSpec := fmt.Sprintf("@every %s", s.cfg.PollInterval)
	if _, err := s.cron.AddFunc(pollSpec, func() { s.tick(s.ctx) }); err != nil {
		return fmt.Errorf("failed to register poll entry: %w", err)
	}

	if s.cleaner != nil && s.cfg.CleanupInterval > 0 {
		cleanupSpec := fmt.Sprintf("@every %s", s.cfg.CleanupInterval)
		if _, err := s.cron.AddFunc(cleanupSpec, s.cleanupTick); err != nil {
			return fmt.Errorf("failed to register cleanup entry: %w", err)
		}
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("scheduler started",
		logger.Field{Key: "poll_interval", Value: s.cfg.PollInterval.String()},
		logger.Field{Key: "cleanup_interval", Value: s.cfg.CleanupInterval.String()})

	go func() {
		<-s.ctx.Done()
		s.cron.Stop()
		s.logger.Info("scheduler stopped")
	}()

	return nil
}

// Stop cancels the cron entries and waits for a running tick to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}

	s.cancel()
	s.started = false

	// A tick in flight holds tickMu; acquiring it means the batch drained.
	s.tickMu.Lock()
	s.tickMu.Unlock() //nolint:staticcheck // empty critical section is the drain
	return nil
}

// tick fetches due jobs and processes them sequentially, oldest first.
// A failure in one job never aborts the batch.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		s.logger.Debug("previous batch still running, skipping poll")
		return
	}
	defer s.tickMu.Unlock()

	due, err := s.source.GetDueJobs(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to fetch due jobs", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Info("due jobs found", logger.Field{Key: "count", Value: len(due)})

	for i, j := range due {
		if ctx.Err() != nil {
			return
		}
		// Process handles its own failures; the returned error is the
		// job's cause and is already recorded.
		_ = s.runner.Process(ctx, j)

		if i < len(due)-1 && s.cfg.InterJobDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.InterJobDelay):
			}
		}
	}
}

// cleanupTick sweeps downloaded media past the retention age.
func (s *Scheduler) cleanupTick() {
	removed, err := s.cleaner.CleanupOld(s.cfg.CleanupMaxAge)
	if err != nil {
		s.logger.Warn("media cleanup finished with errors",
			logger.Field{Key: "removed", Value: removed},
			logger.Field{Key: "error", Value: err})
		return
	}
	if removed > 0 {
		s.logger.Info("stale media removed", logger.Field{Key: "count", Value: removed})
	}
}

// warnStaleProcessing reports jobs stuck in processing from a previous run.
// They are left untouched for inspection; the operator decides their fate.
func (s *Scheduler) warnStaleProcessing(ctx context.Context) {
	stale, err := s.source.ListByStatus(ctx, job.StatusProcessing)
	if err != nil {
		s.logger.Warn("failed to check for stale jobs", logger.Field{Key: "error", Value: err})
		return
	}
	for _, j := range stale {
		s.logger.Warn("job stuck in processing from a previous run",
			logger.Field{Key: "job_id", Value: j.ID},
			logger.Field{Key: "updated_at", Value: j.UpdatedAt})
	}
}
