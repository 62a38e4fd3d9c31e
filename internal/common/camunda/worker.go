// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
)

// JobHandler is implemented by every passport worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeError     = "error"
	outcomeUnknown   = "unacknowledged"
)

// outcomeClient records which terminal command a handler issued.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = outcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = outcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = outcomeError
	return c.JobClient.NewThrowErrorCommand()
}

// Instrument wraps h with a span, Prometheus job metrics and the
// OpenTelemetry job counters. obs may be nil.
func Instrument(taskType string, h JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		ctx := context.Background()
		end := func(error) {}
		if obs != nil {
			ctx, end = obs.StartSpan(ctx, taskType,
				attribute.Int64("job.key", job.Key),
				attribute.Int64("process.instance.key", job.ProcessInstanceKey),
			)
		}

		oc := &outcomeClient{JobClient: client, outcome: outcomeUnknown}
		h.Handle(oc, job)

		switch oc.outcome {
		case outcomeCompleted:
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			end(nil)
		default:
			metrics.WorkerJobsFailed.WithLabelValues(taskType, oc.outcome).Inc()
			end(jobOutcomeError(oc.outcome))
		}
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())

		if obs != nil {
			obs.RecordJobProcessed(ctx, taskType, oc.outcome)
			obs.RecordJobDuration(ctx, taskType, time.Since(start), oc.outcome)
		}
	}
}

type jobOutcomeError string

func (e jobOutcomeError) Error() string { return "job " + string(e) }

// Worker is one open job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) *Worker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		Name(taskType)
	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &Worker{
		worker:   step.Open(),
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
		taskType: taskType,
	}
	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
	})
	return w
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
