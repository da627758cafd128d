package models

import "time"

// TaskType enumerates the kinds of work the worker knows how to run.
type TaskType string

const (
	TaskBackfillStock  TaskType = "BACKFILL_STOCK"
	TaskRefreshStock   TaskType = "REFRESH_STOCK"
	TaskDailyUpdateAll TaskType = "DAILY_UPDATE_ALL"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskBackfillStock, TaskRefreshStock, TaskDailyUpdateAll:
		return true
	}
	return false
}

// NeedsTicker reports whether the task operates on a single ticker.
func (t TaskType) NeedsTicker() bool {
	return t == TaskBackfillStock || t == TaskRefreshStock
}

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskRunning TaskStatus = "RUNNING"
	TaskDone    TaskStatus = "DONE"
	TaskError   TaskStatus = "ERROR"
)

// Queue priorities used by the producers. Higher runs first.
const (
	PriorityBackfill       = 10
	PriorityDailyRefresh   = 20
	PriorityDailyUpdateAll = 30
	PriorityManualRefresh  = 50
)

// MaxTaskErrorLength caps the stored error message.
const MaxTaskErrorLength = 500

// Task is one unit of scheduled work in the shared queue.
type Task struct {
	ID        string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	TaskType  TaskType   `gorm:"column:task_type;size:32;not null" json:"task_type"`
	Ticker    *string    `gorm:"column:ticker;size:16;index" json:"ticker"`
	Priority  int        `gorm:"column:priority;not null;default:0;index:idx_tasks_claim,priority:2" json:"priority"`
	Status    TaskStatus `gorm:"column:status;size:16;not null;index:idx_tasks_claim,priority:1" json:"status"`
	Attempts  int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error     *string    `gorm:"column:error;size:500" json:"error"`
	CreatedAt time.Time  `gorm:"column:created_at;precision:6;index:idx_tasks_claim,priority:3" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;precision:6" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// TickerValue returns the ticker or an empty string for fleet-wide tasks.
func (t *Task) TickerValue() string {
	if t.Ticker == nil {
		return ""
	}
	return *t.Ticker
}

// TaskSpec describes a task to enqueue.
type TaskSpec struct {
	Type     TaskType
	Ticker   string
	Priority int
}
