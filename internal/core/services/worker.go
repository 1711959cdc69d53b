package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driven"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
	"github.com/custodia-labs/vision/internal/logger"
)

const (
	// DefaultConcurrency is how many jobs a worker processes in parallel.
	DefaultConcurrency = 4

	// DefaultBackoff is the base delay before an automatic retry. The
	// delay doubles with every attempt already burned.
	DefaultBackoff = 2 * time.Second
)

// Worker drains job deliveries from a channel and runs them through the
// pipeline, retrying transient failures with exponential backoff until the
// job's attempt budget is exhausted.
type Worker struct {
	runner      driving.JobRunner
	jobStore    driven.JobStore
	jobs        <-chan string
	concurrency int
	maxAttempts int
	backoff     time.Duration

	wg sync.WaitGroup
}

// WorkerOption configures the worker.
type WorkerOption func(*Worker)

// WithConcurrency sets how many jobs run in parallel.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithWorkerMaxAttempts sets the per-job attempt budget.
func WithWorkerMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoff sets the base retry delay.
func WithBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// NewWorker creates a worker reading job IDs from jobs.
func NewWorker(runner driving.JobRunner, jobStore driven.JobStore, jobs <-chan string, opts ...WorkerOption) *Worker {
	w := &Worker{
		runner:      runner,
		jobStore:    jobStore,
		jobs:        jobs,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutines. It returns immediately; call Wait
// to block until the jobs channel is closed and drained.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("Starting %d workers", w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}
}

// Wait blocks until all worker goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-w.jobs:
			if !ok {
				return
			}
			w.handle(ctx, jobID)
		}
	}
}

// handle runs a job until it settles: completed, attempt budget exhausted,
// or context cancelled. A failed run whose job still has budget is reset
// and re-run after a backoff.
func (w *Worker) handle(ctx context.Context, jobID string) {
	for {
		err := w.runner.Run(ctx, jobID)
		if err == nil {
			return
		}

		job, getErr := w.jobStore.Get(ctx, jobID)
		if getErr != nil {
			logger.Error("Job %s failed and could not be re-read: %v", jobID, getErr)
			return
		}
		if job.Status != domain.StatusFailed {
			// Lost the claim race or the error happened after settlement.
			return
		}
		if job.Attempts >= w.maxAttempts {
			logger.Warn("Job %s exhausted %d attempts, leaving failed: %v", jobID, job.Attempts, err)
			return
		}
		if !retryable(err) {
			logger.Warn("Job %s failed with a non-retryable error, leaving failed: %v", jobID, err)
			return
		}

		delay := w.backoff << (job.Attempts - 1)
		logger.Info("Job %s failed (attempt %d of %d), retrying in %s", jobID, job.Attempts, w.maxAttempts, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if resetErr := w.jobStore.Reset(ctx, jobID); resetErr != nil {
			logger.Error("Resetting job %s for retry: %v", jobID, resetErr)
			return
		}
	}
}

// retryable reports whether a failure class can succeed on a re-run.
// Bad or vanished input stays bad; only infrastructure failures such as
// an unreachable embedding service are worth another attempt.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrExtraction),
		errors.Is(err, domain.ErrChunking),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound):
		return false
	}
	return true
}
