// internal/services/classifier/classifier.go
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/services/stability"
)

const pdfExt = ".pdf"

// .crdownload/.part are in-progress browser downloads that may later be renamed to .pdf
var monitoredExtensions = map[string]bool{
	pdfExt:        true,
	".crdownload": true,
	".part":       true,
}

// Reason explains a classification decision.
type Reason string

const (
	Accepted  Reason = "accepted"
	Directory Reason = "directory"
	Extension Reason = "extension"
	Vanished  Reason = "vanished"
	Renamed   Reason = "renamed"
	NotPDF    Reason = "not_pdf"
	Duplicate Reason = "duplicate"
)

// Decision is the outcome of classifying one notification.
type Decision struct {
	Reason  Reason
	Path    string
	ModTime time.Time

	claim claim
}

func (d Decision) Accepted() bool { return d.Reason == Accepted }

// Stabilizer waits for a file to stop changing.
type Stabilizer interface {
	WaitUntilStable(ctx context.Context, path string) (stability.Result, error)
}

// Enqueuer takes accepted jobs. Satisfied by *queue.Queue[events.PrintJob].
type Enqueuer interface {
	Put(job events.PrintJob) error
}

// Notifier is told about a job before it is queued. A job the queue refuses is reported
// finished with StatusRefused, so every JobQueued is followed by exactly one JobFinished.
type Notifier interface {
	JobQueued(ctx context.Context, job events.PrintJob)
	JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult)
}

// DecisionRecorder counts decisions, e.g. for metrics.
type DecisionRecorder interface {
	RecordDecision(reason string)
}

// Classifier turns filesystem notifications into print jobs.
// It owns the processed-files map; Handle may be called from many goroutines.
type Classifier struct {
	queue     Enqueuer
	stability Stabilizer
	fs        stability.FileSystem
	processed *processedFiles
	notifier  Notifier
	recorder  DecisionRecorder
	logger    *slog.Logger
}

type Option func(*Classifier)

func WithFileSystem(fsys stability.FileSystem) Option {
	return func(c *Classifier) { c.fs = fsys }
}

func WithNotifier(n Notifier) Option {
	return func(c *Classifier) { c.notifier = n }
}

func WithRecorder(r DecisionRecorder) Option {
	return func(c *Classifier) { c.recorder = r }
}

func New(queue Enqueuer, stabilizer Stabilizer, logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		queue:     queue,
		stability: stabilizer,
		fs:        stability.OS,
		processed: newProcessedFiles(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle classifies n and pushes an accepted file onto the print queue.
func (c *Classifier) Handle(ctx context.Context, n events.Notification) {
	decision, err := c.Classify(ctx, n)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("classification aborted by shutdown", "path", n.Path)
			return
		}
		c.logger.Error("failed to classify file", "path", n.Path, "kind", n.Kind, "error", err)
		return
	}

	if c.recorder != nil {
		c.recorder.RecordDecision(string(decision.Reason))
	}

	if !decision.Accepted() {
		c.logger.Debug("ignoring notification", "path", n.Path, "kind", n.Kind, "reason", decision.Reason)
		return
	}

	job := events.NewPrintJob(decision.Path, decision.ModTime)

	// Once Put returns the worker may already be done with the job, so queued goes out first.
	if c.notifier != nil {
		c.notifier.JobQueued(ctx, job)
	}

	if err := c.queue.Put(job); err != nil {
		c.processed.release(decision.claim)
		c.logger.Warn("print queue refused file", "file", job.FileName, "error", err)
		if c.notifier != nil {
			c.notifier.JobFinished(ctx, job, events.PrintResult{
				JobID:      job.ID,
				FilePath:   job.FilePath,
				Status:     events.StatusRefused,
				Error:      err.Error(),
				FinishedAt: time.Now(),
			})
		}
		return
	}

	c.logger.Info("PDF ready for printing", "file", job.FileName, "job_id", job.ID)
}

// Classify decides whether n denotes a stable PDF that has not been accepted in this version yet.
// It blocks while the file is still being written. Accepted decisions are recorded in the
// processed-files map, so classifying the same unchanged file twice accepts it once.
func (c *Classifier) Classify(ctx context.Context, n events.Notification) (Decision, error) {
	path := n.Path
	if n.IsDir {
		return Decision{Reason: Directory, Path: path}, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !monitoredExtensions[ext] {
		return Decision{Reason: Extension, Path: path}, nil
	}

	result, err := c.stability.WaitUntilStable(ctx, path)
	if err != nil {
		return Decision{}, err
	}
	if result == stability.Vanished {
		return Decision{Reason: Vanished, Path: path}, nil
	}

	if ext != pdfExt {
		// The finished download gets its own notification once renamed; it is not queued from here.
		if c.exists(renamedPath(path)) {
			return Decision{Reason: Renamed, Path: path}, nil
		}
		return Decision{Reason: NotPDF, Path: path}, nil
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Decision{Reason: Vanished, Path: path}, nil
		}
		return Decision{}, fmt.Errorf("failed to read modification time: %w", err)
	}

	cl, changed := c.processed.markIfChanged(path, info.ModTime())
	if !changed {
		return Decision{Reason: Duplicate, Path: path, ModTime: info.ModTime()}, nil
	}
	return Decision{Reason: Accepted, Path: path, ModTime: info.ModTime(), claim: cl}, nil
}

func (c *Classifier) exists(path string) bool {
	_, err := c.fs.Stat(path)
	return err == nil
}

// renamedPath is where a temporary download ends up: report.pdf.crdownload -> report.pdf,
// report.part -> report.pdf.
func renamedPath(path string) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	if strings.EqualFold(filepath.Ext(stem), pdfExt) {
		return stem
	}
	return stem + pdfExt
}
