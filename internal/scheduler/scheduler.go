// Package scheduler runs backtests on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work. The context carries the per-run timeout.
type Job func(ctx context.Context) error

// Scheduler manages scheduled backtest jobs
type Scheduler struct {
	cron       *cron.Cron
	logger     *logrus.Logger
	jobTimeout time.Duration
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	// running guards against a slow job overlapping its next tick
	running map[cron.EntryID]bool
}

// NewScheduler creates a new scheduler. jobTimeout bounds each job run.
func NewScheduler(jobTimeout time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		logger:     logger,
		jobTimeout: jobTimeout,
		jobIDs:     make([]cron.EntryID, 0),
		running:    make(map[cron.EntryID]bool),
	}
}

// ScheduleBacktest schedules job under a standard five-field cron expression or a descriptor such as @daily
func (s *Scheduler) ScheduleBacktest(cronExpression string, name string, job Job) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}

	var entryID cron.EntryID
	entryID, err := s.cron.AddFunc(cronExpression, func() { s.runJob(entryID, name, job) })
	if err != nil {
		return 0, fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"cron": cronExpression,
	}).Info("Scheduled backtest job")

	return entryID, nil
}

// RunNow executes job once, synchronously, with the scheduler's timeout
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.execute(ctx, name, job)
}

func (s *Scheduler) runJob(id cron.EntryID, name string, job Job) {
	s.mu.Lock()
	if s.running[id] {
		s.mu.Unlock()
		s.logger.WithField("job", name).Warn("Previous run still in progress, skipping tick")
		return
	}
	s.running[id] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()

	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()
	_ = s.execute(ctx, name, job)
}

func (s *Scheduler) execute(ctx context.Context, name string, job Job) error {
	start := time.Now()
	s.logger.WithField("job", name).Info("Starting scheduled backtest")

	err := job(ctx)
	fields := logrus.Fields{
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Scheduled backtest failed")
		return err
	}
	s.logger.WithFields(fields).Info("Scheduled backtest completed")
	return nil
}

func (s *Scheduler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.jobTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.jobTimeout)
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	done := s.cron.Stop().Done()
	s.mu.Unlock()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(jobID cron.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	s.cron.Remove(jobID)
	for i, id := range s.jobIDs {
		if id == jobID {
			s.jobIDs = append(s.jobIDs[:i], s.jobIDs[i+1:]...)
			break
		}
	}
	s.logger.WithField("entry", jobID).Info("Removed job")

	return nil
}
