// cmd/pdfwatch/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfwatch/internal/app"
	"pdfwatch/internal/config"
	"pdfwatch/internal/logger"
	"pdfwatch/internal/services/broker"
	"pdfwatch/internal/services/database"
	"pdfwatch/internal/services/metrics"
	"pdfwatch/internal/services/notify"
	"pdfwatch/internal/services/printer"
	"pdfwatch/internal/services/storage"
	"pdfwatch/pkg/messaging"
)

// load config, choose the folder, wire the optional sinks, then run the
// watcher -> queue -> print worker pipeline until SIGINT/SIGTERM
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

	if err := run(cfg, log); err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	log.Info("exited")
}

func run(cfg *config.Config, log *slog.Logger) error {
	folder, err := chooseFolder(cfg)
	if err != nil {
		return fmt.Errorf("invalid folder selection: %w", err)
	}
	log.Info("monitoring folder", "folder", folder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Addr != "" {
		go recorder.Serve(ctx, cfg.Metrics.Addr, log)
	}

	sinks := notify.NewFanout(log, recorder)
	setupSinks(ctx, cfg, sinks, log)
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Error("failed to close sinks", "error", err)
		}
	}()

	pipeline, err := app.New(app.Options{
		Folder:       folder,
		PollInterval: cfg.Watcher.PollInterval,
		Printer:      printer.NewService(cfg.Printer.Executable, log),
		Sinks:        sinks,
		Recorder:     recorder,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	if cfg.Printer.Executable == "" {
		log.Warn("no print executable configured, files will be skipped", "env", "PDFWATCH_PRINTER_EXECUTABLE")
	}

	if err := pipeline.Run(ctx); err != nil {
		log.Error("pipeline stopped with error", "error", err)
	}
	return nil
}

func chooseFolder(cfg *config.Config) (string, error) {
	if !cfg.Watcher.Interactive {
		return config.ResolveFolder(cfg.Watcher.Folder)
	}
	return config.ChooseFolder(os.Stdin, os.Stdout, cfg.Watcher.Folder)
}

// optional sinks: a failure to connect is logged and the sink is skipped, printing still works
func setupSinks(ctx context.Context, cfg *config.Config, sinks *notify.Fanout, log *slog.Logger) {
	if cfg.RabbitMQ.Enabled() {
		client, err := messaging.NewRabbitMQClient(cfg.RabbitMQ.URI, log)
		if err != nil {
			log.Error("failed to connect to RabbitMQ, print events will not be published", "error", err)
		} else if err := client.SetupInfrastructure(cfg.RabbitMQ.Exchange, broker.Bindings); err != nil {
			log.Error("failed to set up RabbitMQ infrastructure", "error", err)
			client.Close()
		} else {
			sinks.Add(broker.NewPublisher(client, cfg.RabbitMQ.Exchange))
		}
	}

	if cfg.Postgres.Enabled() {
		journal, err := database.NewPostgresService(cfg.Postgres, log)
		if err != nil {
			log.Error("failed to open print journal", "error", err)
		} else {
			schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := journal.EnsureSchema(schemaCtx)
			cancel()
			if err != nil {
				log.Error("failed to prepare print journal", "error", err)
				journal.Close()
			} else {
				sinks.Add(journal)
			}
		}
	}

	if cfg.S3.Enabled() {
		archive, err := storage.NewS3Service(cfg.S3)
		if err != nil {
			log.Error("failed to initialize S3 archive", "error", err)
		} else {
			sinks.Add(archive)
		}
	}
}
