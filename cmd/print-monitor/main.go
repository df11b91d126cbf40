// cmd/print-monitor/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pdfwatch/internal/config"
	"pdfwatch/internal/domain/events"
	"pdfwatch/internal/logger"
	"pdfwatch/internal/services/broker"
	"pdfwatch/pkg/messaging"
)

// Follows the print events pdfwatch publishes and logs them, e.g. on a machine
// other than the one attached to the printer.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Format:      cfg.Log.Format,
		Environment: cfg.Env,
		Level:       logger.ParseLevel(cfg.Log.Level),
	})

	if !cfg.RabbitMQ.Enabled() {
		log.Error("PDFWATCH_RABBITMQ_URI is required")
		os.Exit(1)
	}

	rabbitMQ, err := messaging.NewRabbitMQClient(cfg.RabbitMQ.URI, log)
	if err != nil {
		log.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	if err := rabbitMQ.SetupInfrastructure(cfg.RabbitMQ.Exchange, broker.Bindings); err != nil {
		log.Error("failed to set up RabbitMQ infrastructure", "error", err)
		os.Exit(1)
	}

	subscriptions := map[string]EventHandler{
		broker.Bindings[0].Queue: handleJobQueuedEvent(log),
		broker.Bindings[1].Queue: handleJobFinishedEvent(log),
	}
	for queue, handler := range subscriptions {
		log.Info("subscribing to queue", "queue", queue)
		if err := rabbitMQ.Subscribe(queue, handler); err != nil {
			log.Error("failed to subscribe", "queue", queue, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("print monitor stopped")
}

type EventHandler func([]byte) error

// Malformed messages are dropped rather than requeued forever.
func handleJobQueuedEvent(log *slog.Logger) EventHandler {
	return func(data []byte) error {
		var job events.PrintJob
		if err := json.Unmarshal(data, &job); err != nil {
			log.Warn("dropping malformed print queued event", "error", err)
			return nil
		}
		log.Info("file queued for printing", "file", job.FileName, "job_id", job.ID, "queued_at", job.QueuedAt)
		return nil
	}
}

func handleJobFinishedEvent(log *slog.Logger) EventHandler {
	return func(data []byte) error {
		var event events.JobFinishedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn("dropping malformed print finished event", "error", err)
			return nil
		}

		if event.Result.Failed() {
			log.Error("print failed",
				"file", event.Job.FileName,
				"job_id", event.Job.ID,
				"status", event.Result.Status,
				"error", event.Result.Error,
			)
			return nil
		}
		log.Info("file printed",
			"file", event.Job.FileName,
			"job_id", event.Job.ID,
			"exit_code", event.Result.ExitCode,
			"duration", event.Result.Duration,
		)
		return nil
	}
}
