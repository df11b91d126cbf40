// internal/services/printer/printer.go
package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"pdfwatch/internal/domain/events"
)

// Silently print to the default printer and close afterwards.
var printArgs = []string{"-print-to-default", "-silent"}

var ErrExecutableNotConfigured = errors.New("the path to the print executable was not configured")

// CommandRunner runs name with args and waits for it to exit.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Service invokes the external print executable (SumatraPDF or a compatible tool).
type Service struct {
	// Path to the print executable, re-checked on every print
	Executable string
	run        CommandRunner
	logger     *slog.Logger
}

func NewService(executable string, logger *slog.Logger) *Service {
	return &Service{
		Executable: executable,
		run:        runCommand,
		logger:     logger,
	}
}

// WithRunner replaces the process runner. Used by tests.
func (s *Service) WithRunner(run CommandRunner) *Service {
	s.run = run
	return s
}

// Print sends path to the printer and waits for the executable to exit.
// The exit code is recorded but not interpreted.
func (s *Service) Print(ctx context.Context, job events.PrintJob) events.PrintResult {
	result := events.PrintResult{
		JobID:    job.ID,
		FilePath: job.FilePath,
	}

	exe, err := s.resolveExecutable()
	if err != nil {
		result.Status = events.StatusMissingExecutable
		result.Error = err.Error()
		result.FinishedAt = time.Now()
		return result
	}

	s.logger.Info("sending file to the printer", "file", job.FileName, "executable", exe)

	args := append(append([]string{}, printArgs...), job.FilePath)
	start := time.Now()
	err = s.run(ctx, exe, args...)
	result.Duration = time.Since(start)
	result.FinishedAt = time.Now()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Status = events.StatusPrinted
	case errors.As(err, &exitErr):
		result.Status = events.StatusPrinted
		result.ExitCode = exitErr.ExitCode()
	default:
		result.Status = events.StatusInvocationFailed
		result.Error = fmt.Sprintf("failed to run print executable: %v", err)
	}
	return result
}

func (s *Service) resolveExecutable() (string, error) {
	if s.Executable == "" {
		return "", ErrExecutableNotConfigured
	}
	info, err := os.Stat(s.Executable)
	if err != nil {
		return "", fmt.Errorf("the print executable was not found at %s: %w", s.Executable, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("the print executable path %s is a directory", s.Executable)
	}
	return s.Executable, nil
}
