package application

import (
	"context"
	"errors"
	"log"
	"time"

	jobs "freight-audit/internal/jobs/domain"
)

// Worker polls the queue and executes jobs until its context is canceled.
type Worker struct {
	runner   *Runner
	interval time.Duration
	logger   *log.Logger
}

// NewWorker constructs a polling worker.
func NewWorker(runner *Runner, interval time.Duration, logger *log.Logger) (*Worker, error) {
	if runner == nil {
		return nil, errors.New("jobs: nil runner")
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{runner: runner, interval: interval, logger: logger}, nil
}

// Run blocks until ctx is canceled. Each tick drains the queue.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := w.runner.RunOnce(ctx)
		if errors.Is(err, jobs.ErrNoQueuedJob) {
			return
		}
		if err != nil {
			w.logger.Printf("worker: claim job: %v", err)
			return
		}
	}
}
