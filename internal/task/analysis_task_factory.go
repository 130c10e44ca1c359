package task

import (
	"log/slog"
)

// AnalysisTaskFactory creates AnalysisTask instances with pre-configured
// dependencies. This simplifies task creation in the submission path by
// avoiding the need to pass all dependencies every time.
type AnalysisTaskFactory struct {
	store    TaskRecordStore
	analysis AnalysisService
	logger   *slog.Logger
}

// NewAnalysisTaskFactory creates a new factory for AnalysisTask instances
func NewAnalysisTaskFactory(
	store TaskRecordStore,
	analysis AnalysisService,
	logger *slog.Logger,
) *AnalysisTaskFactory {
	return &AnalysisTaskFactory{
		store:    store,
		analysis: analysis,
		logger:   logger,
	}
}

// CreateTask creates a new AnalysisTask for the given task record, working
// audio file and per-task working directory.
func (f *AnalysisTaskFactory) CreateTask(taskID, audioPath, workDir string) (Task, error) {
	return NewAnalysisTask(
		taskID,
		audioPath,
		workDir,
		f.store,
		f.analysis,
		f.logger,
	)
}
