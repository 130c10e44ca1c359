package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fluentlab/speech-api/internal/domain"
	"github.com/fluentlab/speech-api/internal/media"
	"github.com/fluentlab/speech-api/internal/store"
	"github.com/fluentlab/speech-api/internal/task"
)

// TaskRepository defines the persistence operations the service layer needs.
// It is a subset of store.TaskStore; the status writes belong to the
// background task, not to the service.
type TaskRepository interface {
	// Create saves a new task record to the store
	Create(ctx context.Context, task *domain.AnalysisTask) error

	// GetByID retrieves a task by its unique ID
	GetByID(ctx context.Context, id string) (*domain.AnalysisTask, error)

	// GetStatus retrieves only the status and error fields for a task
	GetStatus(ctx context.Context, id string) (*domain.TaskStatusInfo, error)

	// List returns summaries of all known tasks, most recent first
	List(ctx context.Context) ([]domain.TaskSummary, error)

	// Delete removes a task record, used to roll back a failed submission
	Delete(ctx context.Context, id string) error
}

// TaskRunner defines the interface for submitting background tasks.
type TaskRunner interface {
	// Submit adds a task to the processing queue
	Submit(ctx context.Context, task task.Task) error
}

// AnalysisTaskFactory creates the background task for a submission.
type AnalysisTaskFactory interface {
	// CreateTask creates a new analysis task for the given audio file
	CreateTask(taskID, audioPath, workDir string) (task.Task, error)
}

// MediaWorkspace provides per-task working directories and upload storage.
type MediaWorkspace interface {
	// TaskDir creates and returns the working directory for a task id
	TaskDir(taskID string) (string, error)

	// SaveUpload writes uploaded content into the task directory
	SaveUpload(taskDir, filename string, content io.Reader) (string, error)
}

// AudioConverter converts uploaded media into canonical PCM audio.
type AudioConverter interface {
	// NeedsExtraction reports whether the file requires conversion
	NeedsExtraction(filename string) bool

	// Extract converts source into canonical audio at dest
	Extract(ctx context.Context, source, dest string) error
}

// TaskService provides the submission and polling operations of the analysis
// pipeline.
type TaskService interface {
	// Submit stores the uploaded media, converts it if necessary, creates
	// the task record and dispatches the background analysis. The returned
	// record is already visible to readers when Submit returns.
	Submit(ctx context.Context, filename string, content io.Reader) (*domain.AnalysisTask, error)

	// GetStatus returns the status projection for a task.
	GetStatus(ctx context.Context, taskID string) (*domain.TaskStatusInfo, error)

	// GetResult returns the result payload of a completed task. If the task
	// exists but is not completed, it returns the current status together
	// with ErrResultNotReady.
	GetResult(ctx context.Context, taskID string) (json.RawMessage, domain.TaskStatus, error)

	// ListTasks returns summaries of all known tasks, most recent first.
	ListTasks(ctx context.Context) ([]domain.TaskSummary, error)
}

type taskServiceImpl struct {
	repo      TaskRepository
	runner    TaskRunner
	factory   AnalysisTaskFactory
	workspace MediaWorkspace
	converter AudioConverter
	logger    *slog.Logger
	now       func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	repo TaskRepository,
	runner TaskRunner,
	factory AnalysisTaskFactory,
	workspace MediaWorkspace,
	converter AudioConverter,
	logger *slog.Logger,
) (TaskService, error) {
	if repo == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "repo cannot be nil"}
	}
	if runner == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "runner cannot be nil"}
	}
	if factory == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "factory cannot be nil"}
	}
	if workspace == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "workspace cannot be nil"}
	}
	if converter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "converter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		repo:      repo,
		runner:    runner,
		factory:   factory,
		workspace: workspace,
		converter: converter,
		logger:    logger.With(slog.String("component", "task_service")),
		now:       time.Now,
	}, nil
}

func (s *taskServiceImpl) Submit(
	ctx context.Context,
	filename string,
	content io.Reader,
) (*domain.AnalysisTask, error) {
	submittedAt := s.now().UTC()
	taskID := domain.NewTaskID(submittedAt)

	log := s.logger.With(slog.String("task_id", taskID))

	workDir, err := s.workspace.TaskDir(taskID)
	if err != nil {
		log.Error("failed to create task working directory", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("submit", "failed to create working directory", err)
	}

	savedPath, err := s.workspace.SaveUpload(workDir, filename, content)
	if err != nil {
		log.Error("failed to store uploaded file", slog.String("error", err.Error()))
		s.removeWorkDir(workDir, log)
		return nil, NewTaskServiceError("submit", "failed to store upload", err)
	}

	// Conversion happens before the record exists so a conversion failure is
	// reported synchronously and leaves no task behind.
	audioPath := savedPath
	if s.converter.NeedsExtraction(filename) {
		dest := media.CanonicalPath(savedPath)
		if err := s.converter.Extract(ctx, savedPath, dest); err != nil {
			log.Warn("audio extraction failed",
				slog.String("filename", filename),
				slog.String("error", err.Error()))
			s.removeWorkDir(workDir, log)
			return nil, NewTaskServiceError(
				"submit",
				"audio extraction failed",
				errors.Join(ErrConversionFailed, err),
			)
		}
		audioPath = dest
	}

	record, err := domain.NewAnalysisTask(taskID, submittedAt)
	if err != nil {
		s.removeWorkDir(workDir, log)
		return nil, NewTaskServiceError("submit", "failed to create task record", err)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		log.Error("failed to persist task record", slog.String("error", err.Error()))
		s.removeWorkDir(workDir, log)
		return nil, NewTaskServiceError("submit", "failed to persist task record", err)
	}

	analysisTask, err := s.factory.CreateTask(taskID, audioPath, workDir)
	if err != nil {
		log.Error("failed to build analysis task", slog.String("error", err.Error()))
		s.rollback(ctx, taskID, workDir, log)
		return nil, NewTaskServiceError("submit", "failed to build analysis task", err)
	}

	if err := s.runner.Submit(ctx, analysisTask); err != nil {
		log.Warn("failed to dispatch analysis task", slog.String("error", err.Error()))
		s.rollback(ctx, taskID, workDir, log)
		return nil, NewTaskServiceError("submit", "failed to dispatch analysis task", err)
	}

	log.Info("task submitted",
		slog.String("filename", filename),
		slog.String("audio_path", audioPath))
	return record, nil
}

func (s *taskServiceImpl) GetStatus(ctx context.Context, taskID string) (*domain.TaskStatusInfo, error) {
	info, err := s.repo.GetStatus(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to retrieve task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID))
		return nil, NewTaskServiceError("get_status", "failed to retrieve task status", err)
	}
	return info, nil
}

func (s *taskServiceImpl) GetResult(
	ctx context.Context,
	taskID string,
) (json.RawMessage, domain.TaskStatus, error) {
	record, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, "", ErrTaskNotFound
		}
		s.logger.Error("failed to retrieve task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID))
		return nil, "", NewTaskServiceError("get_result", "failed to retrieve task", err)
	}

	if record.Status != domain.TaskStatusCompleted {
		return nil, record.Status, ErrResultNotReady
	}

	return record.Result, record.Status, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]domain.TaskSummary, error) {
	summaries, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return summaries, nil
}

// rollback undoes a submission that could not be dispatched. The record and
// the working directory both disappear so the client can retry cleanly.
func (s *taskServiceImpl) rollback(ctx context.Context, taskID, workDir string, log *slog.Logger) {
	if err := s.repo.Delete(ctx, taskID); err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		log.Error("failed to roll back task record", slog.String("error", err.Error()))
	}
	s.removeWorkDir(workDir, log)
}

func (s *taskServiceImpl) removeWorkDir(workDir string, log *slog.Logger) {
	if workDir == "" {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		log.Warn("failed to remove task working directory",
			slog.String("work_dir", workDir),
			slog.String("error", err.Error()))
	}
}
