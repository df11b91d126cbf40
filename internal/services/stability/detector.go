// internal/services/stability/detector.go
package stability

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// Result is the outcome of waiting for a file to settle.
type Result int

const (
	Stable Result = iota
	Vanished
)

func (r Result) String() string {
	switch r {
	case Stable:
		return "stable"
	case Vanished:
		return "vanished"
	default:
		return "unknown"
	}
}

// Clock sleeps between polls. Tests swap it for one that returns immediately.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// FileSystem is the subset of os used to observe watched files.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// OS is the FileSystem backed by the real disk.
var OS FileSystem = osFS{}

// Detector decides when a file has stopped growing.
type Detector struct {
	interval time.Duration
	clock    Clock
	fs       FileSystem
	logger   *slog.Logger
}

type Option func(*Detector)

func WithClock(c Clock) Option {
	return func(d *Detector) { d.clock = c }
}

func WithFileSystem(fsys FileSystem) Option {
	return func(d *Detector) { d.fs = fsys }
}

// New creates a detector that polls every interval.
func New(interval time.Duration, logger *slog.Logger, opts ...Option) *Detector {
	d := &Detector{
		interval: interval,
		clock:    realClock{},
		fs:       OS,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WaitUntilStable blocks until two consecutive polls report the same size.
// There is no upper bound: a file that keeps growing keeps the caller waiting.
// A file that disappears yields Vanished; a cancelled ctx yields ctx.Err().
func (d *Detector) WaitUntilStable(ctx context.Context, path string) (Result, error) {
	before, err := d.size(path)
	if err != nil {
		return vanishedOr(err)
	}

	for polls := 1; ; polls++ {
		if err := d.clock.Sleep(ctx, d.interval); err != nil {
			return Vanished, err
		}

		after, err := d.size(path)
		if err != nil {
			return vanishedOr(err)
		}

		if after == before {
			d.logger.Debug("file is stable", "path", path, "size", after, "polls", polls)
			return Stable, nil
		}

		d.logger.Debug("file still changing", "path", path, "previous_size", before, "size", after)
		before = after
	}
}

func (d *Detector) size(path string) (int64, error) {
	info, err := d.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func vanishedOr(err error) (Result, error) {
	if errors.Is(err, fs.ErrNotExist) {
		return Vanished, nil
	}
	return Vanished, fmt.Errorf("failed to stat file: %w", err)
}
