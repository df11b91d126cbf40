package stability

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfwatch/internal/logger"
	"pdfwatch/internal/services/stability/fakefs"
)

const path = "/pdfs/report.pdf"

func newDetector(fsys *fakefs.FS, clock *fakefs.Clock) *Detector {
	return New(time.Second, logger.Discard(), WithFileSystem(fsys), WithClock(clock))
}

func TestWaitUntilStable_UnchangedFile(t *testing.T) {
	fsys := fakefs.New()
	fsys.Write(path, 2<<20, time.Now())
	clock := &fakefs.Clock{}

	result, err := newDetector(fsys, clock).WaitUntilStable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Stable, result)
	assert.Equal(t, 1, clock.Sleeps())
}

func TestWaitUntilStable_GrowingFileSettles(t *testing.T) {
	fsys := fakefs.New()
	fsys.Write(path, 100, time.Now())

	// Grows during the first two intervals, then stops.
	clock := &fakefs.Clock{OnSleep: func(n int) {
		if n <= 2 {
			fsys.Write(path, int64(100*(n+1)), time.Now())
		}
	}}

	result, err := newDetector(fsys, clock).WaitUntilStable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Stable, result)
	assert.Equal(t, 3, clock.Sleeps())
}

func TestWaitUntilStable_VanishedBeforeFirstPoll(t *testing.T) {
	clock := &fakefs.Clock{}

	result, err := newDetector(fakefs.New(), clock).WaitUntilStable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Vanished, result)
	assert.Zero(t, clock.Sleeps())
}

func TestWaitUntilStable_VanishedWhileGrowing(t *testing.T) {
	fsys := fakefs.New()
	fsys.Write(path, 10, time.Now())

	clock := &fakefs.Clock{OnSleep: func(n int) {
		if n == 1 {
			fsys.Write(path, 20, time.Now())
			return
		}
		fsys.Remove(path)
	}}

	result, err := newDetector(fsys, clock).WaitUntilStable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Vanished, result)
	assert.Equal(t, 2, clock.Sleeps())
}

func TestWaitUntilStable_StatError(t *testing.T) {
	fsys := fakefs.New()
	fsys.FailStat(path, fs.ErrPermission)

	_, err := newDetector(fsys, &fakefs.Clock{}).WaitUntilStable(context.Background(), path)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestWaitUntilStable_Cancelled(t *testing.T) {
	fsys := fakefs.New()
	fsys.Write(path, 10, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	size := int64(10)
	clock := &fakefs.Clock{OnSleep: func(n int) {
		size += 10
		fsys.Write(path, size, time.Now())
		if n == 5 {
			cancel()
		}
	}}

	_, err := newDetector(fsys, clock).WaitUntilStable(ctx, path)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 5, clock.Sleeps())
}

func TestWaitUntilStable_RealFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "real.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.7"), 0o644))

	d := New(10*time.Millisecond, logger.Discard())
	result, err := d.WaitUntilStable(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, Stable, result)
}

func TestRealClock_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := realClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
