package analysis

import "errors"

// Common errors returned by the analysis package
var (
	// ErrAnalysisFailed is returned when the engine fails for any general reason
	ErrAnalysisFailed = errors.New("speech analysis failed")

	// ErrInvalidReport is returned when the engine output cannot be parsed
	// or is missing required fields
	ErrInvalidReport = errors.New("invalid report from analysis engine")

	// ErrVisualizationUnreadable is returned when the visualization artifact
	// the engine reported cannot be read from disk
	ErrVisualizationUnreadable = errors.New("visualization artifact unreadable")
)
