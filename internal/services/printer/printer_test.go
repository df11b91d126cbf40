package printer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/logger"
)

type call struct {
	name string
	args []string
}

func recordingRunner(calls *[]call, err error) CommandRunner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return err
	}
}

func fakeExecutable(t *testing.T) string {
	t.Helper()
	exe := filepath.Join(t.TempDir(), "SumatraPDF.exe")
	require.NoError(t, os.WriteFile(exe, []byte{}, 0o755))
	return exe
}

func job(path string) events.PrintJob {
	return events.NewPrintJob(path, time.Now())
}

func TestPrint_InvokesExecutableSilently(t *testing.T) {
	exe := fakeExecutable(t)
	var calls []call
	s := NewService(exe, logger.Discard()).WithRunner(recordingRunner(&calls, nil))

	j := job("/pdfs/report.pdf")
	result := s.Print(context.Background(), j)

	assert.Equal(t, events.StatusPrinted, result.Status)
	assert.Equal(t, j.ID, result.JobID)
	assert.False(t, result.Failed())
	require.Len(t, calls, 1)
	assert.Equal(t, exe, calls[0].name)
	assert.Equal(t, []string{"-print-to-default", "-silent", "/pdfs/report.pdf"}, calls[0].args)
}

func TestPrint_MissingExecutable(t *testing.T) {
	tests := []struct {
		name       string
		executable string
	}{
		{name: "not configured", executable: ""},
		{name: "not on disk", executable: filepath.Join(t.TempDir(), "missing.exe")},
		{name: "directory", executable: t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []call
			s := NewService(tt.executable, logger.Discard()).WithRunner(recordingRunner(&calls, nil))

			result := s.Print(context.Background(), job("/pdfs/report.pdf"))

			assert.Equal(t, events.StatusMissingExecutable, result.Status)
			assert.NotEmpty(t, result.Error)
			assert.True(t, result.Failed())
			assert.Empty(t, calls, "no subprocess may be started")
		})
	}
}

func TestPrint_InvocationFailure(t *testing.T) {
	var calls []call
	s := NewService(fakeExecutable(t), logger.Discard()).
		WithRunner(recordingRunner(&calls, errors.New("exec format error")))

	result := s.Print(context.Background(), job("/pdfs/report.pdf"))

	assert.Equal(t, events.StatusInvocationFailed, result.Status)
	assert.Contains(t, result.Error, "exec format error")
}

func TestPrint_RealProcessNonZeroExitIsStillPrinted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the print executable")
	}

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	exe := filepath.Join(dir, "fake-sumatra")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nexit 3\n"
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))

	s := NewService(exe, logger.Discard())
	result := s.Print(context.Background(), job("/pdfs/report.pdf"))

	assert.Equal(t, events.StatusPrinted, result.Status)
	assert.Equal(t, 3, result.ExitCode)

	got, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "-print-to-default -silent /pdfs/report.pdf", strings.TrimSpace(string(got)))
}
