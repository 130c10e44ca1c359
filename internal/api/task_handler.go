package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluentlab/speech-api/internal/api/shared"
	"github.com/fluentlab/speech-api/internal/service"
	"github.com/fluentlab/speech-api/internal/task"
)

// uploadFieldName is the multipart form field carrying the media file.
const uploadFieldName = "file"

// TaskHandler handles the upload and polling HTTP endpoints.
type TaskHandler struct {
	taskService    service.TaskService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. maxUploadBytes bounds the size
// of accepted request bodies.
func NewTaskHandler(taskService service.TaskService, maxUploadBytes int64, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService:    taskService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "task_handler")),
	}
}

// UploadAudio handles POST /upload_audio requests. It accepts a multipart
// form with a "file" field, stores and converts the media, and acknowledges
// with the task id once the background analysis has been dispatched.
func (h *TaskHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			h.logger.Warn("failed to close uploaded file", slog.String("error", err.Error()))
		}
	}()

	record, err := h.taskService.Submit(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversionFailed):
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to extract audio", err)
		case errors.Is(err, task.ErrQueueFull):
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
				"Server is busy, try again later", err)
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to process upload", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		Message: "Processing started",
		TaskID:  record.ID,
	})
}

// GetTaskStatus handles GET /task_status/{taskID} requests.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	info, err := h.taskService.GetStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to retrieve task status", err)
		return
	}

	response := TaskStatusResponse{Status: string(info.Status)}
	if info.Error != "" {
		response.Error = &info.Error
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// ListTasks handles GET /tasks requests.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.taskService.ListTasks(r.Context())
	if err != nil {
		h.logger.Error("failed to list tasks", slog.String("error", err.Error()))
		shared.RespondWithJSON(w, r, http.StatusInternalServerError, TaskListErrorResponse{
			Status:  "error",
			Message: "Failed to retrieve tasks",
		})
		return
	}

	items := make([]TaskListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, TaskListItem{
			TaskID:    s.TaskID,
			Status:    string(s.Status),
			Timestamp: s.SubmittedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Status: "success",
		Count:  len(items),
		Tasks:  items,
	})
}

// GetResult handles GET /get_result/{taskID} requests. A task that exists
// but has not completed yields 202 with its current status; a completed task
// yields the stored result document byte for byte.
func (h *TaskHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	result, status, err := h.taskService.GetResult(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		case errors.Is(err, service.ErrResultNotReady):
			shared.RespondWithJSON(w, r, http.StatusAccepted, PendingResultResponse{
				Status: string(status),
			})
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to retrieve result", err)
		}
		return
	}

	shared.RespondWithRawJSON(w, r, http.StatusOK, result)
}
