package service

import (
	"errors"
	"fmt"

	"github.com/fluentlab/speech-api/internal/store"
)

// Sentinel errors returned by TaskService. Handlers branch on these to pick
// response codes; everything else is wrapped in a TaskServiceError.
var (
	// ErrTaskNotFound indicates that no task record exists for the id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrConversionFailed indicates the uploaded media could not be
	// converted to canonical audio. No task record exists when this is
	// returned.
	ErrConversionFailed = errors.New("failed to extract audio")

	// ErrResultNotReady indicates the task exists but has not produced a
	// result yet.
	ErrResultNotReady = errors.New("task result not ready")
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "get_result")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrConversionFailed) ||
		errors.Is(err, ErrResultNotReady) {
		return err
	}

	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
