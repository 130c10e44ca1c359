package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, cfg TaskRunnerConfig) *TaskRunner {
	t.Helper()
	runner := NewTaskRunner(cfg, setupTestLogger())
	t.Cleanup(runner.Stop)
	return runner
}

func TestRunnerExecutesSubmittedTask(t *testing.T) {
	runner := newTestRunner(t, TaskRunnerConfig{WorkerCount: 2, QueueSize: 10})
	runner.Start()

	done := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(done)
		return nil
	}

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not executed")
	}
}

func TestRunnerCallsErrorHandlerOnFailure(t *testing.T) {
	runner := newTestRunner(t, TaskRunnerConfig{WorkerCount: 1, QueueSize: 10})

	execErr := errors.New("analysis blew up")
	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	runner.Start()

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		return execErr
	}

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, execErr)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}
}

func TestRunnerRecoversFromPanickingTask(t *testing.T) {
	runner := newTestRunner(t, TaskRunnerConfig{WorkerCount: 1, QueueSize: 10})

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	runner.Start()

	panicking := newMockTask()
	panicking.execFn = func(ctx context.Context) error {
		panic("boom")
	}
	require.NoError(t, runner.Submit(context.Background(), panicking))

	select {
	case err := <-handled:
		assert.Contains(t, err.Error(), "task panicked")
	case <-time.After(time.Second):
		t.Fatal("panic was not converted to an error")
	}

	// The worker must survive a panic and keep processing.
	done := make(chan struct{})
	next := newMockTask()
	next.execFn = func(ctx context.Context) error {
		close(done)
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), next))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestRunnerAppliesTaskTimeout(t *testing.T) {
	runner := newTestRunner(t, TaskRunnerConfig{
		WorkerCount: 1,
		QueueSize:   10,
		TaskTimeout: 20 * time.Millisecond,
	})

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	runner.Start()

	hung := newMockTask()
	hung.execFn = func(ctx context.Context) error {
		// Simulate a hung external call that honors context cancellation.
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, runner.Submit(context.Background(), hung))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("hung task did not surface as a failure")
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	const workers = 2
	runner := newTestRunner(t, TaskRunnerConfig{WorkerCount: workers, QueueSize: 20})
	runner.Start()

	var running, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		task := newMockTask()
		task.execFn = func(ctx context.Context) error {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}
		require.NoError(t, runner.Submit(context.Background(), task))
	}

	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers),
		"no more than WorkerCount tasks may run at once")
}

func TestRunnerSubmitFailsWhenQueueFull(t *testing.T) {
	// Runner not started: nothing drains the queue.
	runner := newTestRunner(t, TaskRunnerConfig{WorkerCount: 1, QueueSize: 1})

	require.NoError(t, runner.Submit(context.Background(), newMockTask()))

	err := runner.Submit(context.Background(), newMockTask())
	assert.ErrorIs(t, err, ErrQueueFull)
}
