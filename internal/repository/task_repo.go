package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

var (
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrTickerRequired  = errors.New("ticker is required for this task type")
	ErrTaskNotRunning  = errors.New("task is not running")
	ErrTaskNotFound    = errors.New("task not found")
)

// claimRetries bounds how often ClaimNext re-selects after losing a race.
const claimRetries = 5

// TaskRepository is the durable priority queue shared by all workers.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func newTask(spec models.TaskSpec) (*models.Task, error) {
	if !spec.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, spec.Type)
	}
	task := &models.Task{
		ID:       utils.GenerateUUID(),
		TaskType: spec.Type,
		Priority: spec.Priority,
		Status:   models.TaskPending,
	}
	if spec.Type.NeedsTicker() {
		ticker, ok := utils.NormalizeTicker(spec.Ticker)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTickerRequired, spec.Type)
		}
		task.Ticker = &ticker
	}
	return task, nil
}

// Enqueue inserts a single PENDING task.
func (r *TaskRepository) Enqueue(ctx context.Context, taskType models.TaskType, ticker string, priority int) (*models.Task, error) {
	task, err := newTask(models.TaskSpec{Type: taskType, Ticker: ticker, Priority: priority})
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return task, nil
}

// EnqueueMany inserts all specs in one transaction. Either every row is created or none.
func (r *TaskRepository) EnqueueMany(ctx context.Context, specs []models.TaskSpec) ([]models.Task, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	tasks := make([]models.Task, 0, len(specs))
	for _, spec := range specs {
		task, err := newTask(spec)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	// A batch insert stamps one created_at on every row; spread them so the
	// queue keeps the order of specs among equal priorities.
	base := r.db.NowFunc()
	for i := range tasks {
		tasks[i].CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %d tasks: %w", len(tasks), err)
	}
	return tasks, nil
}

// ClaimFilter narrows the PENDING rows ClaimNext may take. The zero value takes any.
type ClaimFilter struct {
	// SkipTickers excludes tasks for tickers the caller found busy.
	SkipTickers []string
	// BusyWithin excludes tickers with a RUNNING task updated within this window.
	BusyWithin time.Duration
}

// ClaimNext moves the highest-priority, oldest PENDING task matching filter to
// RUNNING and returns it. It returns (nil, nil) when nothing is pending.
func (r *TaskRepository) ClaimNext(ctx context.Context, filter ClaimFilter) (*models.Task, error) {
	for i := 0; i < claimRetries; i++ {
		task, err := r.tryClaim(ctx, filter)
		if errors.Is(err, errClaimLost) {
			continue
		}
		return task, err
	}
	return nil, fmt.Errorf("claim next task: %w %d times", errClaimLost, claimRetries)
}

var errClaimLost = errors.New("lost the claim race")

func (r *TaskRepository) tryClaim(ctx context.Context, filter ClaimFilter) (*models.Task, error) {
	var claimed *models.Task
	lost := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.TaskPending)
		if len(filter.SkipTickers) > 0 {
			q = q.Where("(ticker IS NULL OR ticker NOT IN ?)", filter.SkipTickers)
		}
		if filter.BusyWithin > 0 {
			q = q.Where("(ticker IS NULL OR NOT EXISTS (SELECT 1 FROM tasks AS busy WHERE busy.ticker = tasks.ticker AND busy.status = ? AND busy.updated_at > ?))",
				models.TaskRunning, tx.NowFunc().Add(-filter.BusyWithin))
		}

		var candidate models.Task
		err := q.Order("priority DESC").
			Order("created_at ASC").
			Limit(1).
			Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// Engines without row locks still only let one claimant flip the row.
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", candidate.ID, models.TaskPending).
			Updates(map[string]interface{}{
				"status":     models.TaskRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			lost = true
			return nil
		}

		if err := tx.Where("id = ?", candidate.ID).Take(&candidate).Error; err != nil {
			return err
		}
		claimed = &candidate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	if lost {
		return nil, errClaimLost
	}
	return claimed, nil
}

// Complete marks a RUNNING task DONE.
func (r *TaskRepository) Complete(ctx context.Context, id string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status": models.TaskDone,
		"error":  nil,
	})
}

// Fail marks a RUNNING task ERROR and stores the truncated message.
func (r *TaskRepository) Fail(ctx context.Context, id, message string) error {
	msg := utils.Truncate(message, models.MaxTaskErrorLength)
	return r.finish(ctx, id, map[string]interface{}{
		"status": models.TaskError,
		"error":  msg,
	})
}

// Release hands a RUNNING task back to the queue without counting the attempt.
func (r *TaskRepository) Release(ctx context.Context, id string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":   models.TaskPending,
		"attempts": gorm.Expr("CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END"),
	})
}

func (r *TaskRepository) finish(ctx context.Context, id string, updates map[string]interface{}) error {
	db := r.db.WithContext(ctx)
	updates["updated_at"] = db.NowFunc()
	res := db.Model(&models.Task{}).
		Where("id = ? AND status = ?", id, models.TaskRunning).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotRunning, id)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns the newest tasks, optionally filtered by status.
func (r *TaskRepository) List(ctx context.Context, status models.TaskStatus, limit int) ([]models.Task, error) {
	var tasks []models.Task
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

// CountByStatus reports queue depth per status.
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ReapStale marks RUNNING tasks untouched for longer than olderThan as ERROR.
// Reaped tasks are never re-queued.
func (r *TaskRepository) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	db := r.db.WithContext(ctx)
	now := db.NowFunc()
	cutoff := now.Add(-olderThan)
	msg := utils.Truncate(fmt.Sprintf("stale: RUNNING for more than %s without completing", olderThan), models.MaxTaskErrorLength)

	res := db.Model(&models.Task{}).
		Where("status = ? AND updated_at < ?", models.TaskRunning, cutoff).
		Updates(map[string]interface{}{
			"status":     models.TaskError,
			"error":      msg,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reap stale tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
