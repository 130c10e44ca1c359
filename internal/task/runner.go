package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout is an optional deadline applied to each task execution.
	// Zero means no deadline: a hung external call then leaves its task in
	// processing state until the process restarts.
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 4,
		QueueSize:   100,
		TaskTimeout: 30 * time.Minute,
	}
}

// TaskRunner manages background task processing on a bounded pool of worker
// goroutines fed by a buffered in-memory queue. Tasks are fire-and-forget:
// the queue is not durable, and in-flight tasks are lost if the process
// crashes. Each submitted task gets exactly one execution attempt.
type TaskRunner struct {
	queue      *TaskQueue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultTaskRunnerConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         sync.WaitGroup{},
		config:     config,
		logger:     logger,
		errHandler: func(task Task, err error) {
			// Default error handler just logs the error
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit adds a new task to the queue. It returns immediately; the task runs
// on one of the worker goroutines. Returns an error if the queue is full or
// closed, in which case the task will never run.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start launches the worker pool and begins processing tasks
func (r *TaskRunner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize,
		"task_timeout", r.config.TaskTimeout)
}

// Stop gracefully shuts down the task runner. Queued tasks that have not
// started are drained without executing; running tasks observe context
// cancellation through their execution context.
func (r *TaskRunner) Stop() {
	r.queue.Close()
	r.cancelFunc()
	r.wg.Wait()
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.queue.GetChannel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}

			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(task Task, workerID int) {
	ctx := r.ctx
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}

	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	logger.Info("processing task")
	start := time.Now()

	err := r.executeTask(ctx, task)

	if err != nil {
		logger.Error("task execution failed",
			"error", err,
			"duration", time.Since(start))
		r.errHandler(task, err)
		return
	}

	logger.Info("task completed successfully", "duration", time.Since(start))
}

// executeTask runs the task, converting a panic into an error so a broken
// task never takes down the worker.
func (r *TaskRunner) executeTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()

	return task.Execute(ctx)
}
