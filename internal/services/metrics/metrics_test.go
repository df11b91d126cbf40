package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfwatch/internal/domain/events"
)

func TestRecorder_CountsLifecycle(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	r.RecordDecision("accepted")
	r.RecordDecision("duplicate")
	r.RecordDecision("duplicate")

	a := events.NewPrintJob("/pdfs/a.pdf", time.Now())
	b := events.NewPrintJob("/pdfs/b.pdf", time.Now())
	require.NoError(t, r.JobQueued(ctx, a))
	require.NoError(t, r.JobQueued(ctx, b))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.queueDepth))

	require.NoError(t, r.JobFinished(ctx, a, events.PrintResult{Status: events.StatusPrinted, Duration: time.Second}))
	require.NoError(t, r.JobFinished(ctx, b, events.PrintResult{Status: events.StatusMissingExecutable}))

	assert.Equal(t, 0.0, testutil.ToFloat64(r.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notificationsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.notificationsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.printJobsTotal.WithLabelValues("printed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.printJobsTotal.WithLabelValues("missing_executable")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.RecordDecision("extension")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pdfwatch_notifications_total{decision="extension"} 1`)
}
