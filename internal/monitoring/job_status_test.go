package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/utils/webhook"
)

func newTestJobManager(t *testing.T) (*JobStatusManager, *prometheus.Registry) {
	t.Helper()
	metrics := NewBackgroundJobMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)
	return NewJobStatusManager(setupTestLogger(), metrics), registry
}

func TestJobStatusManager_RegisterJob(t *testing.T) {
	jsm, _ := newTestJobManager(t)

	jsm.RegisterJob("index_watched_escrows")
	first, exists := jsm.GetJobStatus("index_watched_escrows")
	require.True(t, exists)
	assert.Equal(t, JobStatusPending, first.Status)
	assert.NotNil(t, first.Metadata)

	// registering again keeps the original entry
	jsm.RegisterJob("index_watched_escrows")
	second, _ := jsm.GetJobStatus("index_watched_escrows")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestJobStatusManager_CompleteJobSuccess(t *testing.T) {
	jsm, registry := newTestJobManager(t)
	jobName := "index_watched_escrows"

	jsm.StartJob(jobName)
	time.Sleep(5 * time.Millisecond)
	jsm.CompleteJob(jobName, nil, map[string]interface{}{"escrows_indexed": 3})

	status, exists := jsm.GetJobStatus(jobName)
	require.True(t, exists)
	assert.Equal(t, JobStatusSuccess, status.Status)
	assert.Equal(t, int64(1), status.SuccessCount)
	assert.Equal(t, int64(0), status.ConsecutiveFailures)
	assert.True(t, status.LastDuration > 0)
	assert.Equal(t, status.LastDuration, status.AverageExecution)
	assert.Equal(t, status.LastDuration, status.MaxExecutionTime)
	assert.Equal(t, 3, status.Metadata["escrows_indexed"])

	runs := gatherFamily(t, registry, "escrow_history_job_runs_total")
	require.NotNil(t, runs)
	assert.Equal(t, "success", getLabelValue(runs.GetMetric()[0].GetLabel(), "status"))

	active := gatherFamily(t, registry, "escrow_history_jobs_active")
	require.NotNil(t, active)
	assert.Equal(t, float64(0), active.GetMetric()[0].GetGauge().GetValue())
}

func TestJobStatusManager_CompleteJobFailure(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	jobName := "index_watched_escrows"

	for i := 0; i < 2; i++ {
		jsm.StartJob(jobName)
		jsm.CompleteJob(jobName, fmt.Errorf("polygon: %w", escrow.ErrLedgerQueryFailure), nil)
	}

	status, _ := jsm.GetJobStatus(jobName)
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, int64(2), status.FailureCount)
	assert.Equal(t, int64(2), status.ConsecutiveFailures)
	assert.Equal(t, "polygon: ledger query failure", status.LastError)
	assert.Equal(t, "ledger", status.Metadata["error_type"])

	jsm.StartJob(jobName)
	jsm.CompleteJob(jobName, nil, nil)
	status, _ = jsm.GetJobStatus(jobName)
	assert.Equal(t, int64(0), status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
}

func TestJobStatusManager_CompleteUnregisteredJob(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	jsm.CompleteJob("unknown", nil, nil)
	_, exists := jsm.GetJobStatus("unknown")
	assert.False(t, exists)
}

func TestJobStatusManager_StalledDetection(t *testing.T) {
	jsm, registry := newTestJobManager(t)
	jsm.StartJob("slow_job")

	jsm.detectStalledJobs(time.Now().Add(20 * time.Minute))

	status, _ := jsm.GetJobStatus("slow_job")
	assert.Equal(t, JobStatusStalled, status.Status)
	assert.Equal(t, 1, jsm.GetJobsSummary().StalledJobs)

	stalled := gatherFamily(t, registry, "escrow_history_jobs_stalled")
	require.NotNil(t, stalled)
	assert.Equal(t, float64(1), stalled.GetMetric()[0].GetGauge().GetValue())
}

func TestJobStatusManager_Cleanup(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	jsm.RegisterJob("old_job")
	jsm.StartJob("running_job")

	jsm.cleanupOldStatuses(time.Now().Add(48 * time.Hour))

	_, exists := jsm.GetJobStatus("old_job")
	assert.False(t, exists)
	_, exists = jsm.GetJobStatus("running_job")
	assert.True(t, exists)
}

func TestJobStatusManager_Summary(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	jsm.RegisterJob("pending")
	jsm.StartJob("ok")
	jsm.CompleteJob("ok", nil, nil)
	jsm.StartJob("bad")
	jsm.CompleteJob("bad", errors.New("boom"), nil)
	jsm.StartJob("busy")

	summary := jsm.GetJobsSummary()
	assert.Equal(t, 4, summary.TotalJobs)
	assert.Equal(t, 2, summary.HealthyJobs)
	assert.Equal(t, 1, summary.UnhealthyJobs)
	assert.Equal(t, 1, summary.RunningJobs)
}

func TestJobStatusManager_ConcurrentAccess(t *testing.T) {
	jsm, _ := newTestJobManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "job"
			if i%2 == 0 {
				name = "other"
			}
			jsm.StartJob(name)
			jsm.CompleteJob(name, nil, map[string]interface{}{"i": i})
			_ = jsm.GetAllJobStatuses()
		}(i)
	}
	wg.Wait()

	status, _ := jsm.GetJobStatus("job")
	other, _ := jsm.GetJobStatus("other")
	assert.Equal(t, int64(20), status.SuccessCount+other.SuccessCount)
}

func TestInstrumentedJob_Execute(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	jsm, _ := newTestJobManager(t)
	logger := setupTestLogger()
	client := webhook.New(logger)

	t.Run("success calls the webhook", func(t *testing.T) {
		job := NewInstrumentedJob("ok_job", func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		}, jsm, logger, time.Second, WithUptimeWebhook(client, srv.URL))

		job.Execute()

		status, _ := jsm.GetJobStatus("ok_job")
		assert.Equal(t, JobStatusSuccess, status.Status)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("failure skips the webhook", func(t *testing.T) {
		job := NewInstrumentedJob("failing_job", func(context.Context) error {
			return errors.New("database unavailable")
		}, jsm, logger, time.Second, WithUptimeWebhook(client, srv.URL))

		job.Execute()

		status, _ := jsm.GetJobStatus("failing_job")
		assert.Equal(t, JobStatusFailed, status.Status)
		assert.Equal(t, "database", status.Metadata["error_type"])
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("panic is recovered", func(t *testing.T) {
		job := NewInstrumentedJob("panicking_job", func(context.Context) error {
			panic("nil map")
		}, jsm, logger, time.Second)

		job.Execute()

		status, _ := jsm.GetJobStatus("panicking_job")
		assert.Equal(t, JobStatusFailed, status.Status)
		assert.Contains(t, status.LastError, "job panicked")
		assert.Equal(t, "panic", status.Metadata["error_type"])
		assert.Equal(t, "nil map", status.Metadata["panic"])
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		job := NewInstrumentedJob("stuck_job", func(context.Context) error {
			<-release
			return nil
		}, jsm, logger, 20*time.Millisecond)

		job.Execute()

		status, _ := jsm.GetJobStatus("stuck_job")
		assert.Equal(t, JobStatusFailed, status.Status)
		assert.Equal(t, "timeout", status.Metadata["error_type"])
	})
}

func TestClassifyJobError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "job timeout", err: fmt.Errorf("index: %w", errJobTimedOut), want: "timeout"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "chunk timeout", err: &escrow.LedgerQueryError{Err: context.DeadlineExceeded}, want: "timeout"},
		{name: "ledger", err: fmt.Errorf("polygon: %w", escrow.ErrLedgerQueryFailure), want: "ledger"},
		{name: "panic", err: fmt.Errorf("%w: boom", errJobPanicked), want: "panic"},
		{name: "database text", err: errors.New("pq: database is shutting down"), want: "database"},
		{name: "network text", err: errors.New("dial tcp: connection refused"), want: "network"},
		{name: "other", err: errors.New("boom"), want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyJobError(tt.err))
		})
	}
}
