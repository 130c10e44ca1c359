package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fluentlab/speech-api/internal/domain"
)

// TaskStore defines the interface for task persistence. Implementations must
// tolerate concurrent writes to different task ids without coordination; a
// single task id only ever has one writer (the background unit that owns it),
// so no same-key write coordination is required.
//
// All write primitives are field-scoped merge upserts: only the named fields
// are replaced, so the presence-flag write and a later terminal-state write
// can never clobber each other regardless of relative timing.
type TaskStore interface {
	// Create persists a brand-new task record. The record must be visible to
	// readers before submission is acknowledged to the client.
	// Returns ErrTaskExists if the id has already been minted.
	Create(ctx context.Context, task *domain.AnalysisTask) error

	// GetByID retrieves the full task record, including any result payload.
	// Returns ErrTaskNotFound if no record exists for the id.
	GetByID(ctx context.Context, id string) (*domain.AnalysisTask, error)

	// GetStatus retrieves only the status and error fields for a task,
	// keeping the status poll cheap and stable in shape.
	// Returns ErrTaskNotFound if no record exists for the id.
	GetStatus(ctx context.Context, id string) (*domain.TaskStatusInfo, error)

	// List returns summaries of all known tasks, most recent first.
	List(ctx context.Context) ([]domain.TaskSummary, error)

	// MarkLive upserts the internal liveness flag for a task. The upsert is
	// defensive: even if the record were missing, the write creates it so a
	// racing reader never observes "not found" for an active task.
	MarkLive(ctx context.Context, id string) error

	// MarkCompleted atomically moves a task to completed status, storing the
	// result payload and the completion time in a single upsert.
	MarkCompleted(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error

	// MarkFailed atomically moves a task to failed status, storing the
	// error description and the failure time in a single upsert.
	MarkFailed(ctx context.Context, id string, errorMsg string, failedAt time.Time) error

	// Delete removes a task record. Used only to roll back a submission that
	// could not be dispatched; routine retention is an external concern.
	Delete(ctx context.Context, id string) error
}
