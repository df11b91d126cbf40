// Package watcher bridges fsnotify events for a single folder to a notification Handler.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/services/stability"
)

// Handler receives filesystem change records. It may block (e.g. while a download settles)
// and must return once ctx is cancelled.
type Handler interface {
	Handle(ctx context.Context, n events.Notification)
}

// Watcher monitors one folder, non-recursively. Only created and modified records are forwarded,
// each on its own goroutine so a slow download does not hold up other files.
type Watcher struct {
	folder  string
	fsw     *fsnotify.Watcher
	handler Handler
	fs      stability.FileSystem
	logger  *slog.Logger

	inFlight  sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New subscribes to changes in folder.
func New(folder string, handler Handler, logger *slog.Logger) (*Watcher, error) {
	folder = filepath.Clean(folder)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(folder); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", folder, err)
	}

	return &Watcher{
		folder:  folder,
		fsw:     fsw,
		handler: handler,
		fs:      stability.OS,
		logger:  logger,
	}, nil
}

// Folder returns the watched folder.
func (w *Watcher) Folder() string { return w.folder }

// Run dispatches events until ctx is cancelled. On return the subscription is released and
// every in-flight Handle call has finished, so nothing is accepted after Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.inFlight.Wait()
	defer w.Close()

	w.logger.Info("watching directory", "folder", w.folder)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping directory watch", "folder", w.folder)
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			n, ok := w.toNotification(event)
			if !ok {
				continue
			}
			w.dispatch(ctx, n)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "folder", w.folder, "error", err)
		}
	}
}

// Close releases the fsnotify subscription. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

func (w *Watcher) dispatch(ctx context.Context, n events.Notification) {
	w.inFlight.Add(1)
	go func() {
		defer w.inFlight.Done()
		w.handler.Handle(ctx, n)
	}()
}

// toNotification converts a raw event and reports whether it should be forwarded.
func (w *Watcher) toNotification(event fsnotify.Event) (events.Notification, bool) {
	kind, ok := changeKind(event.Op)
	if !ok {
		return events.Notification{}, false
	}

	n := events.Notification{Path: event.Name, Kind: kind}
	if kind != events.Created && kind != events.Modified {
		w.logger.Debug("skipping change", "path", n.Path, "kind", kind)
		return n, false
	}

	if info, err := w.fs.Stat(event.Name); err == nil {
		n.IsDir = info.IsDir()
	}
	return n, true
}

func changeKind(op fsnotify.Op) (events.ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return events.Created, true
	case op.Has(fsnotify.Write):
		return events.Modified, true
	case op.Has(fsnotify.Remove):
		return events.Removed, true
	case op.Has(fsnotify.Rename):
		return events.Renamed, true
	default:
		return 0, false
	}
}
