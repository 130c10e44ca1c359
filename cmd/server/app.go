package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluentlab/speech-api/internal/analysis"
	"github.com/fluentlab/speech-api/internal/api"
	"github.com/fluentlab/speech-api/internal/config"
	"github.com/fluentlab/speech-api/internal/media"
	"github.com/fluentlab/speech-api/internal/platform/postgres"
	"github.com/fluentlab/speech-api/internal/platform/speechcli"
	"github.com/fluentlab/speech-api/internal/service"
	"github.com/fluentlab/speech-api/internal/task"
)

// application holds the initialized components of the server and their
// shutdown hooks.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	db          *sql.DB
	taskRunner  *task.TaskRunner
	taskHandler *api.TaskHandler
}

// newApplication wires the database, media workspace, analysis engine, task
// runner and service layer together. The task runner is started here; the
// HTTP server is started by run.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.RunMigrations(migrateCtx, db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	reportBinaryStatus(cfg, logger)

	workspace, err := media.NewWorkspace(cfg.Media.WorkspaceDir)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to prepare media workspace: %w", err)
	}
	converter := media.NewConverter(cfg.Media.FFmpegPath, logger)

	engine, err := speechcli.NewEngine(cfg.Analyzer, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to configure analysis engine: %w", err)
	}
	analysisService, err := analysis.NewService(engine, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db, logger)
	taskFactory := task.NewAnalysisTaskFactory(taskStore, analysisService, logger)

	taskRunner := task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		TaskTimeout: time.Duration(cfg.Task.TimeoutMinutes) * time.Minute,
	}, logger)
	taskRunner.Start()

	taskService, err := service.NewTaskService(
		taskStore,
		taskRunner,
		taskFactory,
		workspace,
		converter,
		logger,
	)
	if err != nil {
		taskRunner.Stop()
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	maxUploadBytes := int64(cfg.Media.MaxUploadMB) << 20
	taskHandler := api.NewTaskHandler(taskService, maxUploadBytes, logger)

	return &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		taskRunner:  taskRunner,
		taskHandler: taskHandler,
	}, nil
}

// run starts the HTTP server and blocks until shutdown.
func (app *application) run() error {
	return app.startHTTPServer(context.Background(), app.setupRouter())
}

// cleanup stops the task runner and closes the database connection. Queued
// and in-flight tasks that have not finished are lost; their records stay in
// processing state.
func (app *application) cleanup() {
	app.logger.Info("shutting down application components")
	app.taskRunner.Stop()
	closeQuietly(app.db, app.logger)
}

// reportBinaryStatus logs the availability of the external binaries the
// pipeline shells out to. A missing required binary is reported loudly but
// does not prevent startup: the API can still serve status and result reads.
func reportBinaryStatus(cfg *config.Config, logger *slog.Logger) {
	statuses := media.CheckBinaries([]media.Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.Media.FFmpegPath,
			Description: "audio extraction from uploaded media",
		},
		{
			Name:        "analyzer",
			Command:     cfg.Analyzer.Command,
			Description: "speech analysis engine",
		},
	})

	for _, st := range statuses {
		if st.Available {
			logger.Info("external binary available",
				"name", st.Name,
				"command", st.Command)
			continue
		}
		logger.Error("external binary missing, uploads will fail",
			"name", st.Name,
			"command", st.Command,
			"detail", st.Detail)
	}
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("error closing database connection", "error", err)
	}
}
