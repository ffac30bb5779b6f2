package jobs

import (
	"context"
	"log/slog"
	"time"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor on a fixed interval and whenever it is
// triggered. A pollInterval <= 0 disables the ticker; the worker then only
// runs on Trigger.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	triggerChan  chan struct{}
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		triggerChan:  make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Trigger asks for a run as soon as the worker is idle. Triggers arriving
// while one is already pending are coalesced.
func (w *Worker) Trigger() {
	select {
	case w.triggerChan <- struct{}{}:
	default:
	}
}

// Start begins the worker's loop. It blocks until ctx is cancelled or Stop
// is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	var tick <-chan time.Time
	if w.pollInterval > 0 {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped", "reason", "context cancelled")
			return
		case <-w.stopChan:
			slog.Info("worker stopped", "reason", "stop signal received")
			return
		case <-tick:
			w.run(ctx)
		case <-w.triggerChan:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		slog.Error("error processing jobs", "error", err)
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	slog.Info("worker shutdown complete")
}
