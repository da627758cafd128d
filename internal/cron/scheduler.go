package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"sentimentreality/internal/config"
	"sentimentreality/internal/models"
	"sentimentreality/internal/worker"
)

// TaskStore is the part of the task repository the scheduler needs.
type TaskStore interface {
	Enqueue(ctx context.Context, taskType models.TaskType, ticker string, priority int) (*models.Task, error)
	ReapStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	logger *zap.Logger
	tasks  TaskStore
	locker worker.Locker
	now    func() time.Time
}

// New creates a new cron scheduler. locker de-duplicates the daily fan-out
// across processes; it may be nil when only one scheduler runs.
func New(cfg *config.Config, tasks TaskStore, locker worker.Locker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		cfg:    cfg,
		logger: logger,
		tasks:  tasks,
		locker: locker,
		now:    time.Now,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	// Fleet-wide refresh after the US close on weekdays.
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.DailyUpdateSpec, func() {
		s.logger.Debug("Running: daily update enqueue")
		s.enqueueDailyUpdate()
	}); err != nil {
		return fmt.Errorf("schedule daily update %q: %w", s.cfg.Scheduler.DailyUpdateSpec, err)
	}

	// Stuck RUNNING tasks, only when a threshold is configured.
	if s.cfg.Worker.StaleAfter > 0 {
		if _, err := s.cron.AddFunc(s.cfg.Scheduler.StaleSweepSpec, func() {
			s.logger.Debug("Running: stale task sweep")
			s.sweepStaleTasks()
		}); err != nil {
			return fmt.Errorf("schedule stale sweep %q: %w", s.cfg.Scheduler.StaleSweepSpec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop stops the scheduler and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueDailyUpdate() {
	defer s.recoverFromPanic("enqueueDailyUpdate")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.locker != nil {
		key := "daily-update:" + s.now().UTC().Format("2006-01-02")
		_, ok, err := s.locker.Acquire(ctx, key, s.cfg.Scheduler.DailyUpdateDedup)
		if err != nil {
			s.logger.Warn("Daily update dedup unavailable, enqueueing anyway", zap.Error(err))
		} else if !ok {
			s.logger.Info("Daily update already queued today", zap.String("key", key))
			return
		}
	}

	task, err := s.tasks.Enqueue(ctx, models.TaskDailyUpdateAll, "", models.PriorityDailyUpdateAll)
	if err != nil {
		s.logger.Error("Failed to enqueue daily update", zap.Error(err))
		return
	}
	s.logger.Info("Queued daily update", zap.String("task_id", task.ID))
}

func (s *Scheduler) sweepStaleTasks() {
	defer s.recoverFromPanic("sweepStaleTasks")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.tasks.ReapStale(ctx, s.cfg.Worker.StaleAfter)
	if err != nil {
		s.logger.Error("Stale task sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("Marked stale RUNNING tasks as ERROR",
			zap.Int64("tasks", n),
			zap.Duration("stale_after", s.cfg.Worker.StaleAfter),
		)
	}
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("panic", r))
	}
}
