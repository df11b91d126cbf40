// internal/domain/events/events.go
package events

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ChangeKind is the kind of filesystem change a notification reports.
type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Removed
	Renamed
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Notification is a single filesystem change record for a path in the watched folder.
type Notification struct {
	Path  string
	IsDir bool
	Kind  ChangeKind
}

// whenever a stable PDF is accepted for printing
type PrintJob struct {
	ID       uuid.UUID `json:"id"`
	FilePath string    `json:"filePath"`
	FileName string    `json:"fileName"`
	ModTime  time.Time `json:"modTime"`
	QueuedAt time.Time `json:"queuedAt"`
}

// NewPrintJob assigns a fresh job ID to an accepted file.
func NewPrintJob(path string, modTime time.Time) PrintJob {
	return PrintJob{
		ID:       uuid.New(),
		FilePath: path,
		FileName: filepath.Base(path),
		ModTime:  modTime,
		QueuedAt: time.Now(),
	}
}

// PrintStatus is the outcome of a single print attempt.
type PrintStatus string

const (
	StatusPrinted           PrintStatus = "printed"
	StatusMissingExecutable PrintStatus = "missing_executable"
	StatusInvocationFailed  PrintStatus = "invocation_failed"

	// The queue was already stopped, so the job never reached the worker.
	StatusRefused PrintStatus = "refused"
)

// Started reports whether the print executable was launched, i.e. whether ExitCode and
// Duration mean anything.
func (s PrintStatus) Started() bool {
	return s == StatusPrinted || s == StatusInvocationFailed
}

// PrintResult is what the worker reports once a job leaves the queue.
type PrintResult struct {
	JobID      uuid.UUID     `json:"jobId"`
	FilePath   string        `json:"filePath"`
	Status     PrintStatus   `json:"status"`
	Error      string        `json:"error,omitempty"`
	ExitCode   int           `json:"exitCode"`
	Duration   time.Duration `json:"duration"` // How long the print executable ran
	FinishedAt time.Time     `json:"finishedAt"`
}

// Failed reports whether the job never reached the print executable's exit.
func (r PrintResult) Failed() bool {
	return r.Status != StatusPrinted
}

// JobFinishedEvent is the published shape of a finished job.
type JobFinishedEvent struct {
	Job    PrintJob    `json:"job"`
	Result PrintResult `json:"result"`
}
