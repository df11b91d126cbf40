// Package app wires the watcher, classifier, print queue and print worker together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/queue"
	"pdfwatch/internal/services/classifier"
	"pdfwatch/internal/services/notify"
	"pdfwatch/internal/services/stability"
	"pdfwatch/internal/services/worker"
	"pdfwatch/internal/watcher"
)

type Options struct {
	Folder       string
	PollInterval time.Duration
	Printer      worker.Printer
	Sinks        *notify.Fanout
	Recorder     classifier.DecisionRecorder
	Logger       *slog.Logger
}

// Pipeline is the producer/consumer core: filesystem -> classifier -> queue -> worker.
type Pipeline struct {
	queue   *queue.Queue[events.PrintJob]
	watcher *watcher.Watcher
	worker  *worker.Worker
	logger  *slog.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Sinks == nil {
		opts.Sinks = notify.NewFanout(opts.Logger)
	}

	q := queue.New[events.PrintJob]()

	classifierOpts := []classifier.Option{classifier.WithNotifier(opts.Sinks)}
	if opts.Recorder != nil {
		classifierOpts = append(classifierOpts, classifier.WithRecorder(opts.Recorder))
	}
	c := classifier.New(q,
		stability.New(opts.PollInterval, opts.Logger),
		opts.Logger,
		classifierOpts...,
	)

	w, err := watcher.New(opts.Folder, c, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	return &Pipeline{
		queue:   q,
		watcher: w,
		worker:  worker.New(q, opts.Printer, opts.Sinks, opts.Logger),
		logger:  opts.Logger,
	}, nil
}

// Run blocks until ctx is cancelled, then shuts down in order: release the filesystem
// subscription and wait for in-flight classifications, push the stop sentinel, wait until
// everything queued before it is printed, then for the worker to exit. The drain has no timeout.
func (p *Pipeline) Run(ctx context.Context) error {
	go p.worker.Run()

	err := p.watcher.Run(ctx)

	p.logger.Info("exiting, waiting for queued files to print", "pending", p.queue.Len())
	p.queue.Stop()
	p.queue.Join()
	p.worker.Wait()

	return err
}
