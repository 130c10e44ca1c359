package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// resultPayload is the shape persisted on a completed task and returned
// verbatim from the result endpoint: the engine's structured report plus the
// visualization image in a transport-safe inline encoding.
type resultPayload struct {
	*Report
	Visualization string `json:"visualization"`
}

// Service wraps the opaque analysis engine. It invokes the engine, reads the
// visualization artifact the engine rendered, and packages both into the
// final result payload. It removes no files: cleanup of the working
// directory is the task pipeline's responsibility, run once at pipeline end.
type Service struct {
	engine Analyzer
	logger *slog.Logger
}

// NewService creates an analysis Service around the given engine.
func NewService(engine Analyzer, logger *slog.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine cannot be nil", ErrInvalidReport)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine: engine,
		logger: logger.With("component", "analysis_service"),
	}, nil
}

// Run analyzes the audio file and returns the complete result payload with
// the visualization embedded as base64.
func (s *Service) Run(ctx context.Context, audioPath string) (json.RawMessage, error) {
	outcome, err := s.engine.Analyze(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if outcome == nil || outcome.Report == nil {
		return nil, fmt.Errorf("%w: engine returned no report", ErrInvalidReport)
	}
	if outcome.VisualizationPath == "" {
		return nil, fmt.Errorf("%w: engine returned no visualization path", ErrInvalidReport)
	}

	imgBytes, err := os.ReadFile(outcome.VisualizationPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrVisualizationUnreadable, outcome.VisualizationPath, err)
	}

	payload := resultPayload{
		Report:        outcome.Report,
		Visualization: base64.StdEncoding.EncodeToString(imgBytes),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode result payload: %w", ErrInvalidReport, err)
	}

	s.logger.Debug("analysis result packaged",
		"audio_path", audioPath,
		"visualization_bytes", len(imgBytes),
		"payload_bytes", len(data))

	return data, nil
}
