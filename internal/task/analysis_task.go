package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Common errors
var (
	ErrNilTaskStore       = errors.New("task store cannot be nil")
	ErrNilAnalysisService = errors.New("analysis service cannot be nil")
	ErrNilLogger          = errors.New("logger cannot be nil")
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyAudioPath     = errors.New("audio path cannot be empty")
)

// TaskRecordStore defines the write surface the pipeline needs on the task
// record. The analysis task is the sole writer for its task id.
type TaskRecordStore interface {
	// MarkLive upserts the internal liveness flag on the task record
	MarkLive(ctx context.Context, id string) error

	// MarkCompleted moves the record to completed with the result payload
	MarkCompleted(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error

	// MarkFailed moves the record to failed with the error description
	MarkFailed(ctx context.Context, id string, errorMsg string, failedAt time.Time) error
}

// AnalysisService defines the interface to the analyzer wrapper, which runs
// the opaque engine and returns the complete result payload with the
// visualization already embedded.
type AnalysisService interface {
	Run(ctx context.Context, audioPath string) (json.RawMessage, error)
}

// AnalysisTask implements the Task interface for running the speech analysis
// pipeline over one uploaded recording. It owns every store write for its
// task id after submission, and it owns cleanup of the task's working
// directory.
type AnalysisTask struct {
	taskID    string
	audioPath string
	workDir   string
	store     TaskRecordStore
	analysis  AnalysisService
	logger    *slog.Logger
	status    TaskStatus
}

// NewAnalysisTask creates a new analysis task for the given task record,
// working audio file and per-task working directory.
func NewAnalysisTask(
	taskID string,
	audioPath string,
	workDir string,
	store TaskRecordStore,
	analysis AnalysisService,
	logger *slog.Logger,
) (*AnalysisTask, error) {
	if store == nil {
		return nil, ErrNilTaskStore
	}
	if analysis == nil {
		return nil, ErrNilAnalysisService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == "" {
		return nil, ErrEmptyTaskID
	}
	if audioPath == "" {
		return nil, ErrEmptyAudioPath
	}

	return &AnalysisTask{
		taskID:    taskID,
		audioPath: audioPath,
		workDir:   workDir,
		store:     store,
		analysis:  analysis,
		logger:    logger.With("task_type", TaskTypeAnalysis, "task_id", taskID),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the identifier of the analysis task record this unit works on
func (t *AnalysisTask) ID() string {
	return t.taskID
}

// Type returns the task type identifier
func (t *AnalysisTask) Type() string {
	return TaskTypeAnalysis
}

// Status returns the current task status
func (t *AnalysisTask) Status() TaskStatus {
	return t.status
}

// Execute runs the analysis pipeline: it marks the record live, invokes the
// analyzer wrapper on the working audio file, and writes the terminal state
// in a single upsert. Success or failure, it finishes by removing the task's
// working directory; cleanup failures are logged, never escalated, so they
// can never flip a terminal state.
func (t *AnalysisTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting analysis pipeline", "audio_path", t.audioPath)

	defer t.cleanup()

	// Defensive upsert: the record was created at submission, but making the
	// liveness write an upsert guarantees no reader ever observes a missing
	// document for an active task.
	if err := t.store.MarkLive(ctx, t.taskID); err != nil {
		return t.fail(ctx, fmt.Errorf("failed to mark task live: %w", err))
	}

	payload, err := t.analysis.Run(ctx, t.audioPath)
	if err != nil {
		return t.fail(ctx, fmt.Errorf("analysis failed: %w", err))
	}

	if err := t.store.MarkCompleted(ctx, t.taskID, payload, time.Now().UTC()); err != nil {
		// The analysis succeeded but the terminal write did not. The write
		// path is fire-and-forget from the client's perspective, so this is
		// only observable in the logs; the task stays in processing.
		t.status = TaskStatusFailed
		t.logger.Error("failed to persist completed result", "error", err)
		return fmt.Errorf("failed to persist completed result: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("analysis pipeline completed", "result_bytes", len(payload))
	return nil
}

// fail records the failure on the task record and returns the cause. The
// terminal write error, if any, is logged but the original cause is what
// propagates to the runner.
func (t *AnalysisTask) fail(ctx context.Context, cause error) error {
	t.status = TaskStatusFailed
	t.logger.Error("analysis pipeline failed", "error", cause)

	if err := t.store.MarkFailed(ctx, t.taskID, cause.Error(), time.Now().UTC()); err != nil {
		t.logger.Error("failed to persist task failure", "error", err)
	}

	return cause
}

// cleanup removes the task's private working directory (uploaded source,
// extracted audio, analyzer artifacts). Scoped to this task only: concurrent
// tasks each own their own directory.
func (t *AnalysisTask) cleanup() {
	if t.workDir == "" {
		return
	}
	if err := os.RemoveAll(t.workDir); err != nil {
		t.logger.Warn("failed to remove task working directory",
			"work_dir", t.workDir,
			"error", err)
		return
	}
	t.logger.Debug("removed task working directory", "work_dir", t.workDir)
}
