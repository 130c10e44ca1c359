// Package speechcli implements the analysis.Analyzer interface by invoking
// the external speech analysis command. The engine itself is opaque: it takes
// a canonical WAV file, writes a visualization image next to it, and reports
// its findings as JSON on stdout.
package speechcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fluentlab/speech-api/internal/analysis"
	"github.com/fluentlab/speech-api/internal/config"
)

// Engine invokes the configured speech analysis command.
type Engine struct {
	command       string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewEngine creates an Engine from the analyzer configuration.
func NewEngine(cfg config.AnalyzerConfig, logger *slog.Logger) (*Engine, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("analyzer command not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		command: cfg.Command,
		logger:  logger.With("component", "speechcli"),
	}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	e.commandRunner = runner
}

// reportWire is the engine's stdout JSON shape. It matches analysis.Report
// plus the path of the rendered visualization.
type reportWire struct {
	analysis.Report
	VisualizationPath string `json:"visualization_path"`
}

// Analyze runs the external analysis command over the audio file and parses
// its JSON report. The visualization is written into the audio file's
// directory, which is the task's private working directory.
func (e *Engine) Analyze(ctx context.Context, audioPath string) (*analysis.Outcome, error) {
	outputDir := filepath.Dir(audioPath)

	args := []string{
		"--input", audioPath,
		"--output-dir", outputDir,
		"--format", "json",
	}

	e.logger.Debug("invoking analysis engine",
		"command", e.command,
		"audio_path", audioPath)

	stdout, err := e.run(ctx, e.command, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrAnalysisFailed, err)
	}

	var wire reportWire
	if err := json.Unmarshal(stdout, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrInvalidReport, err)
	}
	if wire.VisualizationPath == "" {
		return nil, fmt.Errorf("%w: missing visualization_path", analysis.ErrInvalidReport)
	}

	vizPath := wire.VisualizationPath
	if !filepath.IsAbs(vizPath) {
		vizPath = filepath.Join(outputDir, vizPath)
	}

	report := wire.Report
	return &analysis.Outcome{
		Report:            &report,
		VisualizationPath: vizPath,
	}, nil
}

// run executes the command, using the custom runner if set. Stdout carries
// the JSON report; stderr is surfaced in the error on failure.
func (e *Engine) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout, nil
}
