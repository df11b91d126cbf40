// internal/services/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"pdfwatch/internal/config"
	"pdfwatch/internal/domain/events"
)

// The journal is an audit trail of print jobs. It is written only; deduplication never reads it.
const schema = `
CREATE SCHEMA IF NOT EXISTS pdfwatch;
CREATE TABLE IF NOT EXISTS pdfwatch.print_jobs (
	job_id        UUID PRIMARY KEY,
	file_path     TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	file_mod_time TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	exit_code     INTEGER,
	duration_ms   BIGINT,
	queued_at     TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
);
`

const statusQueued = "queued"

// PrintJobRecord - one print job in the journal
type PrintJobRecord struct {
	JobID        uuid.UUID    `db:"job_id" json:"job_id"`
	FilePath     string       `db:"file_path" json:"file_path"`
	FileName     string       `db:"file_name" json:"file_name"`
	FileModTime  time.Time    `db:"file_mod_time" json:"file_mod_time"`
	Status       string       `db:"status" json:"status"`
	ErrorMessage string       `db:"error_message" json:"error_message,omitempty"`
	ExitCode     *int         `db:"exit_code" json:"exit_code,omitempty"`
	DurationMs   *int64       `db:"duration_ms" json:"duration_ms,omitempty"`
	QueuedAt     time.Time    `db:"queued_at" json:"queued_at"`
	FinishedAt   sql.NullTime `db:"finished_at" json:"-"`
}

type PostgresService struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresService(cfg config.PostgresConfig, logger *slog.Logger) (*PostgresService, error) {
	db, err := sqlx.Connect("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// one writer at a time is all the journal needs
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("connected to PostgreSQL", "database", cfg.DBName, "host", cfg.Host)

	return &PostgresService{db: db, logger: logger}, nil
}

func connString(cfg config.PostgresConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

// EnsureSchema creates the journal table if it does not exist yet.
func (p *PostgresService) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create print journal schema: %w", err)
	}
	return nil
}

func (p *PostgresService) Name() string { return "postgres" }

func (p *PostgresService) JobQueued(ctx context.Context, job events.PrintJob) error {
	query := `
	INSERT INTO pdfwatch.print_jobs (job_id, file_path, file_name, file_mod_time, status, queued_at)
	VALUES (:job_id, :file_path, :file_name, :file_mod_time, :status, :queued_at)
	`
	if _, err := p.db.NamedExecContext(ctx, query, queuedRecord(job)); err != nil {
		return fmt.Errorf("failed to create print job record: %w", err)
	}
	return nil
}

func (p *PostgresService) JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult) error {
	query := `
	UPDATE pdfwatch.print_jobs
	SET status = :status, error_message = :error_message, exit_code = :exit_code,
		duration_ms = :duration_ms, finished_at = :finished_at
	WHERE job_id = :job_id
	`
	res, err := p.db.NamedExecContext(ctx, query, finishedRecord(job, result))
	if err != nil {
		return fmt.Errorf("failed to update print job record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		p.logger.Warn("print job missing from journal", "job_id", job.ID)
	}
	return nil
}

func (p *PostgresService) Close() error {
	return p.db.Close()
}

func queuedRecord(job events.PrintJob) PrintJobRecord {
	return PrintJobRecord{
		JobID:       job.ID,
		FilePath:    job.FilePath,
		FileName:    job.FileName,
		FileModTime: job.ModTime,
		Status:      statusQueued,
		QueuedAt:    job.QueuedAt,
	}
}

func finishedRecord(job events.PrintJob, result events.PrintResult) PrintJobRecord {
	rec := queuedRecord(job)
	rec.Status = string(result.Status)
	rec.ErrorMessage = result.Error
	rec.FinishedAt = sql.NullTime{Time: result.FinishedAt, Valid: !result.FinishedAt.IsZero()}

	// missing executable or refused: no process ran, nothing to record
	if result.Status.Started() {
		exitCode := result.ExitCode
		durationMs := result.Duration.Milliseconds()
		rec.ExitCode = &exitCode
		rec.DurationMs = &durationMs
	}
	return rec
}
