// internal/services/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdfwatch/internal/domain/events"
)

// Recorder counts classification decisions and print outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	notificationsTotal *prometheus.CounterVec
	printJobsTotal     *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	printDuration      prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfwatch_notifications_total",
				Help: "Count of classified filesystem notifications by decision",
			},
			[]string{"decision"},
		),
		printJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdfwatch_print_jobs_total",
				Help: "Count of finished print jobs by status",
			},
			[]string{"status"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdfwatch_queue_depth",
			Help: "Print jobs queued or printing",
		}),
		printDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdfwatch_print_duration_seconds",
			Help:    "Time the print executable took to exit",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}

	r.registry.MustRegister(
		r.notificationsTotal,
		r.printJobsTotal,
		r.queueDepth,
		r.printDuration,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Name() string { return "metrics" }

func (r *Recorder) RecordDecision(reason string) {
	r.notificationsTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) JobQueued(context.Context, events.PrintJob) error {
	r.queueDepth.Inc()
	return nil
}

func (r *Recorder) JobFinished(_ context.Context, _ events.PrintJob, result events.PrintResult) error {
	r.queueDepth.Dec()
	r.printJobsTotal.WithLabelValues(string(result.Status)).Inc()
	if result.Status == events.StatusPrinted {
		r.printDuration.Observe(result.Duration.Seconds())
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "addr", addr, "error", err)
	}
}
