// internal/services/worker/worker.go
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfwatch/internal/domain/events"
)

// Source is the consumer side of the print queue. Satisfied by *queue.Queue[events.PrintJob].
type Source interface {
	Get() (events.PrintJob, bool)
	Done()
}

type Printer interface {
	Print(ctx context.Context, job events.PrintJob) events.PrintResult
}

// FinishedNotifier is told about every job that left the queue, whatever its outcome.
type FinishedNotifier interface {
	JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult)
}

// Worker is the single sequential consumer of the print queue.
// Jobs are printed one at a time in queue order.
type Worker struct {
	queue    Source
	printer  Printer
	notifier FinishedNotifier
	logger   *slog.Logger
	done     chan struct{}
}

func New(queue Source, printer Printer, notifier FinishedNotifier, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		printer:  printer,
		notifier: notifier,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Run consumes the queue until it takes the stop sentinel. Per-job failures are logged and
// never end the loop. Jobs are not cancelled at shutdown: the in-flight print runs to completion.
func (w *Worker) Run() {
	defer close(w.done)

	for {
		job, ok := w.queue.Get()
		if !ok {
			w.queue.Done()
			w.logger.Info("print worker stopped")
			return
		}
		w.process(job)
	}
}

// Wait blocks until Run has returned.
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) process(job events.PrintJob) {
	defer w.queue.Done()

	ctx := context.Background()
	result := w.print(ctx, job)

	switch result.Status {
	case events.StatusPrinted:
		w.logger.Info("file sent to the printer",
			"file", job.FileName,
			"job_id", job.ID,
			"exit_code", result.ExitCode,
			"duration", result.Duration.Round(time.Millisecond),
		)
	default:
		w.logger.Error("failed to send file to the printer",
			"file", job.FileName,
			"job_id", job.ID,
			"status", result.Status,
			"error", result.Error,
		)
	}

	if w.notifier != nil {
		w.notifier.JobFinished(ctx, job, result)
	}
}

func (w *Worker) print(ctx context.Context, job events.PrintJob) (result events.PrintResult) {
	defer func() {
		if r := recover(); r != nil {
			result = events.PrintResult{
				JobID:      job.ID,
				FilePath:   job.FilePath,
				Status:     events.StatusInvocationFailed,
				Error:      fmt.Sprintf("panic while printing: %v", r),
				FinishedAt: time.Now(),
			}
		}
	}()
	return w.printer.Print(ctx, job)
}
