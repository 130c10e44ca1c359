package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentlab/speech-api/internal/domain"
	"github.com/fluentlab/speech-api/internal/service"
	"github.com/fluentlab/speech-api/internal/task"
)

// mockTaskService implements service.TaskService with canned responses.
type mockTaskService struct {
	submitRecord *domain.AnalysisTask
	submitErr    error
	lastFilename string

	statusInfo *domain.TaskStatusInfo
	statusErr  error

	result    json.RawMessage
	resultSt  domain.TaskStatus
	resultErr error

	summaries []domain.TaskSummary
	listErr   error
}

func (m *mockTaskService) Submit(ctx context.Context, filename string, content io.Reader) (*domain.AnalysisTask, error) {
	m.lastFilename = filename
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	// Drain the reader the way the real service stores the upload.
	if _, err := io.Copy(io.Discard, content); err != nil {
		return nil, err
	}
	return m.submitRecord, nil
}

func (m *mockTaskService) GetStatus(ctx context.Context, taskID string) (*domain.TaskStatusInfo, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusInfo, nil
}

func (m *mockTaskService) GetResult(ctx context.Context, taskID string) (json.RawMessage, domain.TaskStatus, error) {
	if m.resultErr != nil {
		return nil, m.resultSt, m.resultErr
	}
	return m.result, m.resultSt, nil
}

func (m *mockTaskService) ListTasks(ctx context.Context) ([]domain.TaskSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.summaries, nil
}

func newTestRouter(svc service.TaskService, maxUploadBytes int64) http.Handler {
	handler := NewTaskHandler(svc, maxUploadBytes, nil)
	r := chi.NewRouter()
	r.Post("/upload_audio", handler.UploadAudio)
	r.Get("/task_status/{taskID}", handler.GetTaskStatus)
	r.Get("/tasks", handler.ListTasks)
	r.Get("/get_result/{taskID}", handler.GetResult)
	return r
}

// multipartBody builds a multipart form with a single file field.
func multipartBody(t *testing.T, fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadAudio(t *testing.T) {
	record, err := domain.NewAnalysisTask("20260828_140000_abc", time.Now().UTC())
	require.NoError(t, err)

	t.Run("accepted_upload_returns_task_id", func(t *testing.T) {
		svc := &mockTaskService{submitRecord: record}
		router := newTestRouter(svc, 0)

		body, contentType := multipartBody(t, uploadFieldName, "recording.mp4", []byte("fake video"))
		req := httptest.NewRequest(http.MethodPost, "/upload_audio", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp UploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Processing started", resp.Message)
		assert.Equal(t, record.ID, resp.TaskID)
		assert.Equal(t, "recording.mp4", svc.lastFilename)
	})

	t.Run("missing_file_field", func(t *testing.T) {
		svc := &mockTaskService{submitRecord: record}
		router := newTestRouter(svc, 0)

		body, contentType := multipartBody(t, "wrong_field", "recording.mp4", []byte("data"))
		req := httptest.NewRequest(http.MethodPost, "/upload_audio", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "No file uploaded", resp["error"])
	})

	t.Run("conversion_failure", func(t *testing.T) {
		svc := &mockTaskService{submitErr: service.ErrConversionFailed}
		router := newTestRouter(svc, 0)

		body, contentType := multipartBody(t, uploadFieldName, "clip.mov", []byte("data"))
		req := httptest.NewRequest(http.MethodPost, "/upload_audio", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Failed to extract audio", resp["error"])
	})

	t.Run("queue_full", func(t *testing.T) {
		svc := &mockTaskService{submitErr: task.ErrQueueFull}
		router := newTestRouter(svc, 0)

		body, contentType := multipartBody(t, uploadFieldName, "sample.wav", []byte("data"))
		req := httptest.NewRequest(http.MethodPost, "/upload_audio", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("oversized_upload", func(t *testing.T) {
		svc := &mockTaskService{submitRecord: record}
		router := newTestRouter(svc, 64)

		body, contentType := multipartBody(t, uploadFieldName, "big.wav", bytes.Repeat([]byte("x"), 4096))
		req := httptest.NewRequest(http.MethodPost, "/upload_audio", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestGetTaskStatus(t *testing.T) {
	t.Run("processing_task_has_null_error", func(t *testing.T) {
		svc := &mockTaskService{
			statusInfo: &domain.TaskStatusInfo{Status: domain.TaskStatusProcessing},
		}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/task_status/some-task", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "processing", resp["status"])
		errVal, present := resp["error"]
		assert.True(t, present, "error field must be present")
		assert.Nil(t, errVal)
	})

	t.Run("failed_task_carries_error", func(t *testing.T) {
		svc := &mockTaskService{
			statusInfo: &domain.TaskStatusInfo{
				Status: domain.TaskStatusFailed,
				Error:  "analysis engine crashed",
			},
		}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/task_status/some-task", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "failed", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "analysis engine crashed", *resp.Error)
	})

	t.Run("unknown_task", func(t *testing.T) {
		svc := &mockTaskService{statusErr: service.ErrTaskNotFound}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/task_status/nope", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Task not found", resp["error"])
	})
}

func TestListTasks(t *testing.T) {
	t.Run("success_envelope", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		svc := &mockTaskService{
			summaries: []domain.TaskSummary{
				{TaskID: "t2", Status: domain.TaskStatusCompleted, SubmittedAt: now},
				{TaskID: "t1", Status: domain.TaskStatusProcessing, SubmittedAt: now.Add(-time.Minute)},
			},
		}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Tasks, 2)
		assert.Equal(t, "t2", resp.Tasks[0].TaskID)
	})

	t.Run("empty_list", func(t *testing.T) {
		svc := &mockTaskService{summaries: []domain.TaskSummary{}}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
		assert.NotNil(t, resp.Tasks)
	})

	t.Run("store_failure", func(t *testing.T) {
		svc := &mockTaskService{listErr: errors.New("connection refused")}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp TaskListErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.NotEmpty(t, resp.Message)
	})
}

func TestGetResult(t *testing.T) {
	t.Run("completed_task_returns_payload_verbatim", func(t *testing.T) {
		payload := json.RawMessage(`{"fluency_score":88.1,"severity":"mild","visualization":"aGVsbG8="}`)
		svc := &mockTaskService{result: payload, resultSt: domain.TaskStatusCompleted}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/get_result/some-task", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, []byte(payload), rec.Body.Bytes())
	})

	t.Run("processing_task_returns_202", func(t *testing.T) {
		svc := &mockTaskService{
			resultSt:  domain.TaskStatusProcessing,
			resultErr: service.ErrResultNotReady,
		}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/get_result/some-task", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var resp PendingResultResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "processing", resp.Status)
	})

	t.Run("unknown_task", func(t *testing.T) {
		svc := &mockTaskService{resultErr: service.ErrTaskNotFound}
		router := newTestRouter(svc, 0)

		req := httptest.NewRequest(http.MethodGet, "/get_result/nope", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
