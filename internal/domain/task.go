package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of an analysis task
type TaskStatus string

// Possible task status values. Transitions are monotonic: a task starts in
// processing and moves exactly once to completed or failed.
const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Common validation errors for AnalysisTask
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrResultWithoutSuccess = errors.New("result must only be set on a completed task")
	ErrErrorWithoutFailure  = errors.New("error must only be set on a failed task")
)

// AnalysisTask represents one submitted analysis job. It is the only
// persistent entity: created at submission with processing status, moved to a
// terminal state exactly once by the background worker that owns it.
type AnalysisTask struct {
	ID          string          `json:"task_id"`
	Status      TaskStatus      `json:"status"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Live        bool            `json:"-"`
	SubmittedAt time.Time       `json:"timestamp"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FailedAt    *time.Time      `json:"failed_at,omitempty"`
}

// TaskStatusInfo is the cheap projection returned by status polls.
// It never carries the result payload.
type TaskStatusInfo struct {
	Status TaskStatus
	Error  string
}

// TaskSummary is the projection returned by task listings.
type TaskSummary struct {
	TaskID      string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	SubmittedAt time.Time  `json:"timestamp"`
}

// NewTaskID mints a unique task identifier. The timestamp prefix keeps ids
// sortable and human-readable; the UUID suffix guarantees uniqueness under
// concurrent or rapid submissions, where a timestamp alone would collide.
func NewTaskID(now time.Time) string {
	return fmt.Sprintf("%s_%s", now.UTC().Format("20060102_150405"), uuid.NewString())
}

// NewAnalysisTask creates a new AnalysisTask in processing status with the
// given id and submission time. Returns an error if validation fails.
func NewAnalysisTask(id string, submittedAt time.Time) (*AnalysisTask, error) {
	task := &AnalysisTask{
		ID:          id,
		Status:      TaskStatusProcessing,
		SubmittedAt: submittedAt.UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the AnalysisTask against its invariants: a non-empty id, a
// known status, result present iff completed and error present iff failed.
func (t *AnalysisTask) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if len(t.Result) > 0 && t.Status != TaskStatusCompleted {
		return ErrResultWithoutSuccess
	}

	if t.Error != "" && t.Status != TaskStatusFailed {
		return ErrErrorWithoutFailure
	}

	return nil
}

// Terminal reports whether the task has reached a terminal state.
func (t *AnalysisTask) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
