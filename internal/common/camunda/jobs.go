package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/common/logger"
	"devhive-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// InputValidator checks raw job variables for a task type.
type InputValidator interface {
	Check(taskType, variables string) error
}

var completeRetry = &RetryConfig{
	MaxRetries: 2,
	BaseDelay:  200 * time.Millisecond,
	MaxDelay:   time.Second,
}

// Responder holds the job plumbing shared by the apply workers: decoding
// variables, completing with output and reporting failures.
type Responder struct {
	taskType  string
	validator InputValidator
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewResponder(taskType string, validator InputValidator, log logger.Logger) *Responder {
	return &Responder{
		taskType:  taskType,
		validator: validator,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
	}
}

// jobDeadlineMargin leaves time to report the outcome before Zeebe hands the
// job to another worker.
const jobDeadlineMargin = time.Second

// JobContext bounds work on job by timeout and by the job's own activation
// deadline less jobDeadlineMargin, whichever comes first.
func (r *Responder) JobContext(job entities.Job, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline := time.Now().Add(timeout)
	if job.ActivatedJob != nil && job.Deadline > 0 {
		if jobDeadline := time.UnixMilli(job.Deadline).Add(-jobDeadlineMargin); jobDeadline.Before(deadline) {
			deadline = jobDeadline
		}
	}
	return context.WithDeadline(context.Background(), deadline)
}

// Decode validates job variables against the registered schema and
// unmarshals them into v. Both failures are INVALID_INPUT.
func (r *Responder) Decode(job entities.Job, v interface{}) error {
	if r.validator != nil {
		if err := r.validator.Check(r.taskType, job.Variables); err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(job.Variables), v); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

func (r *Responder) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	_, err := executeWithRetry(ctx, completeRetry, func(ctx context.Context) (interface{}, error) {
		cmd, err := client.NewCompleteJobCommand().
			JobKey(job.Key).
			VariablesFromObject(output)
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "complete job")
	if err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

// Fail reports err to Zeebe: business errors are thrown as BPMN errors,
// infrastructure errors fail the job with retries.
func (r *Responder) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.CodeOf(err))).Inc()
	r.errors.HandleJobError(ctx, client, job, err)
}
