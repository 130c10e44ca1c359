package analysis

import (
	"context"
	"encoding/json"
)

// StutterEvent describes one disfluency detected in the recording.
type StutterEvent struct {
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text,omitempty"`
}

// Report holds the structured output of the speech analysis engine.
// Field names mirror the engine's JSON output consumed by clients.
type Report struct {
	Transcription     string          `json:"transcription"`
	NumRepetitions    int             `json:"num_repetitions"`
	NumBlocks         int             `json:"num_blocks"`
	NumProlongations  int             `json:"num_prolongations"`
	NumFillers        int             `json:"num_fillers"`
	StutterEvents     []StutterEvent  `json:"stutter_events"`
	FluencyScore      float64         `json:"fluency_score"`
	Severity          string          `json:"severity"`
	PassageComparison json.RawMessage `json:"passage_comparison,omitempty"`
}

// Outcome is what the engine produces for one recording: the structured
// report plus the path of the visualization image it rendered.
type Outcome struct {
	Report            *Report
	VisualizationPath string
}

// Analyzer defines the interface to the opaque speech analysis engine.
// This boundary keeps the engine's internals (signal processing, models,
// runtime) swappable without touching the task pipeline.
type Analyzer interface {
	// Analyze runs the engine over the canonical audio file at audioPath.
	// The context can be used for cancellation and deadlines.
	Analyze(ctx context.Context, audioPath string) (*Outcome, error)
}
