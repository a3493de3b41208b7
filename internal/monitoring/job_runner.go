package monitoring

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/utils/logger"
	"github.com/dwarvesf/escrow-history/internal/utils/webhook"
)

var (
	errJobPanicked = errors.New("job panicked")
	errJobTimedOut = errors.New("job timed out")
)

type JobOption func(*InstrumentedJob)

// WithUptimeWebhook pings url after every successful run. An empty url
// disables the ping.
func WithUptimeWebhook(client *webhook.Client, url string) JobOption {
	return func(j *InstrumentedJob) {
		j.webhookClient = client
		j.webhookURL = url
	}
}

// InstrumentedJob runs a job function under a timeout with panic recovery
// and reports every run to the JobStatusManager.
type InstrumentedJob struct {
	name          string
	run           func(ctx context.Context) error
	statusManager *JobStatusManager
	logger        *logger.Logger
	timeout       time.Duration
	webhookClient *webhook.Client
	webhookURL    string
}

func NewInstrumentedJob(
	name string,
	run func(ctx context.Context) error,
	statusManager *JobStatusManager,
	logger *logger.Logger,
	timeout time.Duration,
	opts ...JobOption,
) *InstrumentedJob {
	statusManager.RegisterJob(name)

	j := &InstrumentedJob{
		name:          name,
		run:           run,
		statusManager: statusManager,
		logger:        logger,
		timeout:       timeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

type jobOutcome struct {
	err      error
	metadata map[string]interface{}
}

// Execute runs the job once. Its error is recorded, not returned. A run that
// outlives the timeout is recorded as failed; its goroutine is left to
// finish on its own once ctx is cancelled.
func (j *InstrumentedJob) Execute() {
	j.statusManager.StartJob(j.name)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	done := make(chan jobOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				j.logger.Error("[InstrumentedJob] job panicked", map[string]string{
					"job_name": j.name,
					"panic":    fmt.Sprint(r),
				})
				done <- jobOutcome{
					err: errors.Wrapf(errJobPanicked, "%v", r),
					metadata: map[string]interface{}{
						"panic":       fmt.Sprint(r),
						"stack_trace": string(debug.Stack()),
					},
				}
			}
		}()
		done <- jobOutcome{err: j.run(ctx)}
	}()

	var out jobOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = jobOutcome{
			err:      errors.Wrapf(errJobTimedOut, "after %v", j.timeout),
			metadata: map[string]interface{}{"timeout": j.timeout.String()},
		}
		j.statusManager.metrics.jobTimeouts.WithLabelValues(j.name).Inc()
	}

	j.statusManager.CompleteJob(j.name, out.err, out.metadata)

	if out.err == nil && j.webhookClient != nil && j.webhookURL != "" {
		j.webhookClient.CallUptimeWebhook(context.Background(), j.webhookURL)
	}
}
