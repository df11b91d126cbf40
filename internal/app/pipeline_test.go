package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/logger"
	"pdfwatch/internal/services/notify"
)

type capturePrinter struct {
	mu      sync.Mutex
	printed []string
	release chan struct{}
}

func (p *capturePrinter) Print(_ context.Context, job events.PrintJob) events.PrintResult {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	p.printed = append(p.printed, filepath.Base(job.FilePath))
	p.mu.Unlock()
	return events.PrintResult{JobID: job.ID, FilePath: job.FilePath, Status: events.StatusPrinted}
}

func (p *capturePrinter) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.printed...)
}

// lifecycleSink records the order lifecycle events arrive in. JobQueued is slow on purpose,
// like a journal insert over the network.
type lifecycleSink struct {
	mu    sync.Mutex
	delay time.Duration
	order []string
}

func (s *lifecycleSink) Name() string { return "lifecycle" }

func (s *lifecycleSink) JobQueued(context.Context, events.PrintJob) error {
	time.Sleep(s.delay)
	s.record("queued")
	return nil
}

func (s *lifecycleSink) JobFinished(_ context.Context, _ events.PrintJob, result events.PrintResult) error {
	s.record("finished:" + string(result.Status))
	return nil
}

func (s *lifecycleSink) Close() error { return nil }

func (s *lifecycleSink) record(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, e)
}

func (s *lifecycleSink) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func startPipeline(t *testing.T, dir string, p *capturePrinter, sinks ...notify.Sink) (cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	pipeline := newPipeline(t, dir, p, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- pipeline.Run(ctx) }()
	return cancel, errc
}

func newPipeline(t *testing.T, dir string, p *capturePrinter, sinks ...notify.Sink) *Pipeline {
	t.Helper()
	pipeline, err := New(Options{
		Folder:       dir,
		PollInterval: 20 * time.Millisecond,
		Printer:      p,
		Sinks:        notify.NewFanout(logger.Discard(), sinks...),
		Logger:       logger.Discard(),
	})
	require.NoError(t, err)
	return pipeline
}

func stopPipeline(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not shut down")
	}
}

func TestPipeline_PrintsDroppedPDFOnce(t *testing.T) {
	dir := t.TempDir()
	p := &capturePrinter{}
	cancel, done := startPipeline(t, dir, p)
	defer stopPipeline(t, cancel, done)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), make([]byte, 64<<10), 0o644))

	assert.Eventually(t, func() bool {
		return len(p.names()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	// Create and Write notifications for the same write must not print twice.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"report.pdf"}, p.names())
}

func TestPipeline_BrowserDownloadPrintsFinalFileOnly(t *testing.T) {
	dir := t.TempDir()
	p := &capturePrinter{}
	cancel, done := startPipeline(t, dir, p)
	defer stopPipeline(t, cancel, done)

	partial := filepath.Join(dir, "invoice.pdf.crdownload")
	require.NoError(t, os.WriteFile(partial, []byte("%PDF-1.7 partial"), 0o644))
	require.NoError(t, os.Rename(partial, filepath.Join(dir, "invoice.pdf")))

	assert.Eventually(t, func() bool {
		return len(p.names()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"invoice.pdf"}, p.names())
}

func TestPipeline_ShutdownWaitsForQueuedPrints(t *testing.T) {
	dir := t.TempDir()
	p := &capturePrinter{release: make(chan struct{})}
	cancel, done := startPipeline(t, dir, p)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("%PDF b"), 0o644))

	// Let both files settle and reach the queue while the printer is held.
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case <-done:
		t.Fatal("pipeline returned while prints were still pending")
	case <-time.After(100 * time.Millisecond):
	}

	close(p.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not drain")
	}
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, p.names())
}

func TestNew_MissingFolder(t *testing.T) {
	_, err := New(Options{
		Folder:       filepath.Join(t.TempDir(), "missing"),
		PollInterval: time.Second,
		Printer:      &capturePrinter{},
		Logger:       logger.Discard(),
	})
	assert.Error(t, err)
}

func TestPipeline_JobQueuedReachesSinksBeforeJobFinished(t *testing.T) {
	dir := t.TempDir()
	sink := &lifecycleSink{delay: 50 * time.Millisecond}
	cancel, done := startPipeline(t, dir, &capturePrinter{}, sink)
	defer stopPipeline(t, cancel, done)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0o644))

	assert.Eventually(t, func() bool {
		return len(sink.seen()) == 2
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"queued", "finished:printed"}, sink.seen())
}

func TestPipeline_RunReturnsWithQueueDrained(t *testing.T) {
	dir := t.TempDir()
	p := &capturePrinter{release: make(chan struct{})}
	sink := &lifecycleSink{}
	pipeline := newPipeline(t, dir, p, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pipeline.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0o644))
	require.Eventually(t, func() bool {
		return len(sink.seen()) > 0
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	close(p.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not drain")
	}

	joined := make(chan struct{})
	go func() {
		pipeline.queue.Join()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("queue still has unfinished entries after Run returned")
	}
	assert.Equal(t, []string{"a.pdf"}, p.names())
}
