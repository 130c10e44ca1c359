package api

import "time"

// UploadResponse is returned when a submission has been accepted.
type UploadResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

// TaskStatusResponse is the stable-shape body of the status poll. Error is
// null unless the task failed.
type TaskStatusResponse struct {
	Status string  `json:"status"`
	Error  *string `json:"error"`
}

// TaskListItem is one entry of the task listing.
type TaskListItem struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskListResponse wraps the task listing with an envelope status and count.
type TaskListResponse struct {
	Status string         `json:"status"`
	Count  int            `json:"count"`
	Tasks  []TaskListItem `json:"tasks"`
}

// TaskListErrorResponse is the envelope returned when listing fails.
type TaskListErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PendingResultResponse is returned by the result endpoint while the task
// has not completed.
type PendingResultResponse struct {
	Status string `json:"status"`
}
