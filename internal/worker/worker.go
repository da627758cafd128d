package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"sentimentreality/internal/models"
	"sentimentreality/internal/repository"
)

// ErrTickerBusy is returned by RunOnce when another worker holds the claimed task's ticker.
var ErrTickerBusy = errors.New("ticker is being processed by another worker")

// TaskQueue is the subset of the task repository the worker drives.
type TaskQueue interface {
	ClaimNext(ctx context.Context, filter repository.ClaimFilter) (*models.Task, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, message string) error
	Release(ctx context.Context, id string) error
}

// Handler runs one claimed task. A returned error marks the task ERROR.
type Handler func(ctx context.Context, task *models.Task) error

// Options tune a Worker.
type Options struct {
	Name string
	// Locker, when set, keeps two tasks for the same ticker from running at once.
	Locker  Locker
	LockTTL time.Duration
}

// Worker claims one task at a time and drives it to DONE or ERROR.
type Worker struct {
	queue    TaskQueue
	handlers map[models.TaskType]Handler
	opts     Options
	log      *zap.Logger
}

func New(queue TaskQueue, handlers map[models.TaskType]Handler, opts Options, log *zap.Logger) *Worker {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.Name != "" {
		log = log.With(zap.String("worker", opts.Name))
	}
	return &Worker{queue: queue, handlers: handlers, opts: opts, log: log}
}

// Handlers maps every task type onto the pipeline.
func Handlers(p *Pipeline) map[models.TaskType]Handler {
	return map[models.TaskType]Handler{
		models.TaskBackfillStock: func(ctx context.Context, t *models.Task) error {
			return p.Backfill(ctx, t.TickerValue())
		},
		models.TaskRefreshStock: func(ctx context.Context, t *models.Task) error {
			return p.Refresh(ctx, t.TickerValue())
		},
		models.TaskDailyUpdateAll: func(ctx context.Context, _ *models.Task) error {
			return p.DailyUpdateAll(ctx)
		},
	}
}

// RunOnce claims and processes at most one task and reports whether one was found.
// A claimed task always ends DONE or ERROR, and runs to completion even if ctx
// is cancelled meanwhile. Tasks whose ticker is busy go back to PENDING and the
// next task is tried; ErrTickerBusy means only busy tickers had work.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, release, err := w.claim(ctx)
	if err != nil || task == nil {
		return false, err
	}
	defer release()

	taskCtx := context.WithoutCancel(ctx)
	log := w.taskLogger(task)
	log.Info("Processing task")
	started := time.Now()

	if runErr := w.execute(taskCtx, task); runErr != nil {
		log.Error("Task failed", zap.Error(runErr), zap.Duration("elapsed", time.Since(started)))
		if err := w.queue.Fail(taskCtx, task.ID, runErr.Error()); err != nil {
			return true, fmt.Errorf("mark task %s failed: %w", task.ID, err)
		}
		return true, nil
	}

	if err := w.queue.Complete(taskCtx, task.ID); err != nil {
		return true, fmt.Errorf("mark task %s done: %w", task.ID, err)
	}
	log.Info("Task done", zap.Duration("elapsed", time.Since(started)))
	return true, nil
}

func (w *Worker) taskLogger(task *models.Task) *zap.Logger {
	return w.log.With(
		zap.String("task_id", task.ID),
		zap.String("task_type", string(task.TaskType)),
		zap.String("ticker", task.TickerValue()),
		zap.Int("attempt", task.Attempts),
	)
}

// claim returns the next task whose ticker lock could be taken, with the
// function that releases that lock.
func (w *Worker) claim(ctx context.Context) (*models.Task, func(), error) {
	var filter repository.ClaimFilter
	if w.opts.Locker != nil {
		filter.BusyWithin = w.opts.LockTTL
	}

	for {
		task, err := w.queue.ClaimNext(ctx, filter)
		if err != nil {
			return nil, nil, err
		}
		if task == nil {
			if len(filter.SkipTickers) > 0 {
				return nil, nil, ErrTickerBusy
			}
			return nil, nil, nil
		}

		release, err := w.lockTicker(context.WithoutCancel(ctx), task, w.taskLogger(task))
		if errors.Is(err, ErrTickerBusy) {
			filter.SkipTickers = append(filter.SkipTickers, task.TickerValue())
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return task, release, nil
	}
}

// lockTicker takes the per-ticker lock. When the ticker is busy the task goes
// back to PENDING and ErrTickerBusy is returned. A task that cannot be put
// back is marked ERROR instead.
func (w *Worker) lockTicker(ctx context.Context, task *models.Task, log *zap.Logger) (func(), error) {
	noop := func() {}
	ticker := task.TickerValue()
	if w.opts.Locker == nil || ticker == "" {
		return noop, nil
	}

	key := "ticker:" + ticker
	token, ok, err := w.opts.Locker.Acquire(ctx, key, w.opts.LockTTL)
	if err != nil {
		log.Warn("Ticker lock unavailable, running unguarded", zap.Error(err))
		return noop, nil
	}
	if !ok {
		if err := w.queue.Release(ctx, task.ID); err != nil {
			log.Error("Releasing busy task failed, marking it failed", zap.Error(err))
			if failErr := w.queue.Fail(ctx, task.ID, "ticker busy: "+err.Error()); failErr != nil {
				err = errors.Join(err, failErr)
			}
			return noop, fmt.Errorf("release task %s: %w", task.ID, err)
		}
		log.Info("Ticker busy, task released")
		return noop, ErrTickerBusy
	}

	return func() {
		if err := w.opts.Locker.Release(ctx, key, token); err != nil {
			log.Warn("Releasing ticker lock failed", zap.Error(err))
		}
	}, nil
}

func (w *Worker) execute(ctx context.Context, task *models.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task handler panicked",
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	handler, ok := w.handlers[task.TaskType]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrUnknownTaskType, task.TaskType)
	}
	if task.TaskType.NeedsTicker() && task.TickerValue() == "" {
		return fmt.Errorf("%w: %s", repository.ErrTickerRequired, task.TaskType)
	}
	return handler(ctx, task)
}

// RunLoop keeps calling RunOnce until ctx is cancelled, sleeping pollInterval
// whenever the queue is empty or something unexpected fails.
func (w *Worker) RunLoop(ctx context.Context, pollInterval time.Duration) error {
	w.log.Info("Worker started", zap.Duration("poll_interval", pollInterval))
	for {
		if ctx.Err() != nil {
			w.log.Info("Worker stopped")
			return nil
		}

		found, err := w.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrTickerBusy):
			found = false
		case err != nil && ctx.Err() == nil:
			w.log.Error("Worker iteration failed", zap.Error(err))
			found = false
		}
		if found {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(pollInterval):
		}
	}
}
