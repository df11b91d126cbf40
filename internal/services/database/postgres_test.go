package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfwatch/internal/config"
	"pdfwatch/internal/domain/events"
)

func TestConnString(t *testing.T) {
	got := connString(config.PostgresConfig{
		Host:     "db.local",
		Port:     5432,
		User:     "pdfwatch",
		Password: "secret",
		DBName:   "printing",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db.local port=5432 user=pdfwatch password=secret dbname=printing sslmode=disable", got)
}

func TestQueuedRecord(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	job := events.NewPrintJob("/pdfs/report.pdf", mod)

	rec := queuedRecord(job)
	assert.Equal(t, job.ID, rec.JobID)
	assert.Equal(t, "report.pdf", rec.FileName)
	assert.Equal(t, mod, rec.FileModTime)
	assert.Equal(t, "queued", rec.Status)
	assert.False(t, rec.FinishedAt.Valid)
}

func TestFinishedRecord(t *testing.T) {
	job := events.NewPrintJob("/pdfs/report.pdf", time.Now())
	finished := time.Now()

	rec := finishedRecord(job, events.PrintResult{
		JobID:      job.ID,
		Status:     events.StatusPrinted,
		ExitCode:   1,
		Duration:   1500 * time.Millisecond,
		FinishedAt: finished,
	})
	assert.Equal(t, "printed", rec.Status)
	require.NotNil(t, rec.ExitCode)
	assert.Equal(t, 1, *rec.ExitCode)
	require.NotNil(t, rec.DurationMs)
	assert.Equal(t, int64(1500), *rec.DurationMs)
	assert.True(t, rec.FinishedAt.Valid)

	missing := finishedRecord(job, events.PrintResult{
		Status:     events.StatusMissingExecutable,
		Error:      "not configured",
		FinishedAt: finished,
	})
	assert.Nil(t, missing.ExitCode)
	assert.Nil(t, missing.DurationMs)
	assert.Equal(t, "not configured", missing.ErrorMessage)

	refused := finishedRecord(job, events.PrintResult{Status: events.StatusRefused, FinishedAt: finished})
	assert.Equal(t, "refused", refused.Status)
	assert.Nil(t, refused.ExitCode)
}
