// internal/services/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pdfwatch/internal/domain/events"
)

// Sink receives print job lifecycle events: metrics, the event bus, the journal, the archive.
type Sink interface {
	Name() string
	JobQueued(ctx context.Context, job events.PrintJob) error
	JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult) error
	Close() error
}

const defaultTimeout = 30 * time.Second

// Fanout delivers each lifecycle event to every sink in order.
// Sink failures are logged and never returned to the pipeline.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:   sinks,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Add appends a sink. Not safe once events are flowing.
func (f *Fanout) Add(s Sink) {
	f.sinks = append(f.sinks, s)
}

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) JobQueued(ctx context.Context, job events.PrintJob) {
	for _, s := range f.sinks {
		f.deliver(ctx, s, "queued", job, func(ctx context.Context) error {
			return s.JobQueued(ctx, job)
		})
	}
}

func (f *Fanout) JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult) {
	for _, s := range f.sinks {
		f.deliver(ctx, s, "finished", job, func(ctx context.Context) error {
			return s.JobFinished(ctx, job, result)
		})
	}
}

func (f *Fanout) deliver(ctx context.Context, s Sink, stage string, job events.PrintJob, fn func(context.Context) error) {
	// Shutdown cancels the watcher context; lifecycle events for jobs already accepted still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		f.logger.Warn("failed to deliver job event",
			"sink", s.Name(),
			"stage", stage,
			"job_id", job.ID,
			"file", job.FileName,
			"error", err,
		)
	}
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
