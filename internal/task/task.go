package task

import (
	"context"
)

// TaskStatus represents the current state of a background unit of work.
// This is internal to the runner; the persisted task record has its own
// status in the domain package.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeAnalysis represents the task type for running the speech
	// analysis pipeline over an uploaded recording.
	TaskTypeAnalysis = "speech_analysis"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the identifier of the analysis task this unit works on
	ID() string

	// Type returns the task type identifier
	Type() string

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
