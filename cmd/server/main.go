// Package main implements the entry point for the speech analysis API
// server, which accepts media uploads, runs the analysis engine in the
// background and serves results over a polling API.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fluentlab/speech-api/internal/config"
	"github.com/fluentlab/speech-api/internal/platform/logger"
)

func main() {
	// A missing .env file is fine; real deployments use the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration, sets up logging and wires the
// application components together.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Task.WorkerCount,
		"workspace_dir", cfg.Media.WorkspaceDir)

	return newApplication(cfg, appLogger)
}
