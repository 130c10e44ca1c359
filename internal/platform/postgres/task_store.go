package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fluentlab/speech-api/internal/domain"
	"github.com/fluentlab/speech-api/internal/platform/logger"
	"github.com/fluentlab/speech-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using a
// PostgreSQL database as the storage backend. The tasks table acts as a
// document store keyed by task id: the result payload lives in a JSONB
// column, and every write names only the columns it owns, giving merge
// semantics between the liveness write and the terminal write.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.AnalysisTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return err
	}

	query := `
		INSERT INTO tasks (id, status, live, submitted_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Status,
		task.Live,
		task.SubmittedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			log.Error("task id collision on create",
				slog.String("task_id", task.ID))
			return store.ErrTaskExists
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id string) (*domain.AnalysisTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, status, error, result, live, submitted_at, completed_at, failed_at
		FROM tasks
		WHERE id = $1
	`

	var task domain.AnalysisTask
	var status string
	var errMsg sql.NullString
	var result []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&status,
		&errMsg,
		&result,
		&task.Live,
		&task.SubmittedAt,
		&task.CompletedAt,
		&task.FailedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return nil, MapError(err)
	}

	task.Status = domain.TaskStatus(status)
	task.Error = errMsg.String
	if len(result) > 0 {
		task.Result = json.RawMessage(result)
	}

	return &task, nil
}

// GetStatus implements store.TaskStore.GetStatus
func (s *PostgresTaskStore) GetStatus(ctx context.Context, id string) (*domain.TaskStatusInfo, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT status, error
		FROM tasks
		WHERE id = $1
	`

	var status string
	var errMsg sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(&status, &errMsg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task status",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return nil, MapError(err)
	}

	return &domain.TaskStatusInfo{
		Status: domain.TaskStatus(status),
		Error:  errMsg.String,
	}, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context) ([]domain.TaskSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, status, submitted_at
		FROM tasks
		ORDER BY submitted_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warn("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	summaries := []domain.TaskSummary{}
	for rows.Next() {
		var summary domain.TaskSummary
		var status string
		if err := rows.Scan(&summary.TaskID, &status, &summary.SubmittedAt); err != nil {
			log.Error("failed to scan task summary", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		summary.Status = domain.TaskStatus(status)
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		log.Error("failed while iterating tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return summaries, nil
}

// MarkLive implements store.TaskStore.MarkLive. The upsert is defensive: the
// record normally exists already, but if it does not, the insert creates it
// in processing state so readers never observe a missing document for an
// active task. On conflict only the live column is touched.
func (s *PostgresTaskStore) MarkLive(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, status, live, submitted_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (id) DO UPDATE
		SET live = TRUE
	`
	_, err := s.db.ExecContext(ctx, query, id, domain.TaskStatusProcessing, time.Now().UTC())
	if err != nil {
		log.Error("failed to mark task live",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return MapError(err)
	}

	log.Debug("task marked live", slog.String("task_id", id))
	return nil
}

// MarkCompleted implements store.TaskStore.MarkCompleted. The terminal state,
// result payload and completion time land in a single atomic upsert that
// names only the fields it owns, so it can never clobber the liveness flag.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, status, result, submitted_at, completed_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    result = EXCLUDED.result,
		    completed_at = EXCLUDED.completed_at
	`
	_, err := s.db.ExecContext(ctx, query, id, domain.TaskStatusCompleted, []byte(result), completedAt.UTC())
	if err != nil {
		log.Error("failed to mark task completed",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return MapError(err)
	}

	log.Info("task completed",
		slog.String("task_id", id),
		slog.Int("result_bytes", len(result)))
	return nil
}

// MarkFailed implements store.TaskStore.MarkFailed.
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, id string, errorMsg string, failedAt time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, status, error, submitted_at, failed_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    error = EXCLUDED.error,
		    failed_at = EXCLUDED.failed_at
	`
	_, err := s.db.ExecContext(ctx, query, id, domain.TaskStatusFailed, errorMsg, failedAt.UTC())
	if err != nil {
		log.Error("failed to mark task failed",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return MapError(err)
	}

	log.Info("task failed",
		slog.String("task_id", id),
		slog.String("task_error", errorMsg))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted", slog.String("task_id", id))
	return nil
}
