package task

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// WorkerPool manages a fixed number of worker goroutines that process tasks
// from a task queue until it is closed and drained.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// logger for structured logging
	logger *slog.Logger

	// errorHandler is called when a task execution fails
	// If nil, errors are only logged
	errorHandler func(task Task, err error)

	// completionHandler is called when a task execution succeeds
	completionHandler func(task Task)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 10,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	// Apply defaults for invalid config values
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		logger:      logger.With("component", "worker_pool"),
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// SetCompletionHandler sets a function called after each successful task
func (p *WorkerPool) SetCompletionHandler(handler func(task Task)) {
	p.completionHandler = handler
}

// WorkerCount returns the number of workers the pool runs.
func (p *WorkerPool) WorkerCount() int { return p.workerCount }

// Run starts the workers and blocks until the queue is closed and drained,
// or ctx is done. Handlers are invoked from the worker goroutines and must be
// safe for concurrent use. Run returns ctx.Err() when it stopped early.
func (p *WorkerPool) Run(ctx context.Context) error {
	var g errgroup.Group

	p.logger.DebugContext(ctx, "starting workers", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		id := i
		g.Go(func() error {
			return p.worker(ctx, id)
		})
	}

	return g.Wait()
}

// worker processes tasks from the queue
func (p *WorkerPool) worker(ctx context.Context, id int) error {
	tasks := p.taskQueue.GetChannel()
	for {
		// Prefer stopping over picking up more work once cancelled.
		if err := ctx.Err(); err != nil {
			p.logger.Debug("stopping worker", "worker_id", id)
			return err
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return ctx.Err()

		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return nil
			}
			p.processTask(ctx, task, id)
		}
	}
}

// processTask handles execution of a single task
func (p *WorkerPool) processTask(ctx context.Context, task Task, workerID int) {
	logger := p.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	logger.DebugContext(ctx, "processing task")

	if err := task.Execute(ctx); err != nil {
		logger.ErrorContext(ctx, "task execution failed", "error", err)
		if p.errorHandler != nil {
			p.errorHandler(task, err)
		}
		return
	}

	logger.DebugContext(ctx, "task completed successfully")
	if p.completionHandler != nil {
		p.completionHandler(task)
	}
}
