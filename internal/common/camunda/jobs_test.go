package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	err error
}

func (s stubValidator) Check(string, string) error { return s.err }

func jobWithVariables(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "project-apply", Variables: vars}}
}

func TestResponder_Decode(t *testing.T) {
	r := NewResponder("project-apply", stubValidator{}, logger.NewTestLogger(t))

	var input struct {
		UserID    int64 `json:"userId"`
		ProjectID int64 `json:"projectId"`
	}
	require.NoError(t, r.Decode(jobWithVariables(`{"userId": 1, "projectId": 100, "other": "x"}`), &input))
	assert.Equal(t, int64(1), input.UserID)
	assert.Equal(t, int64(100), input.ProjectID)

	err := r.Decode(jobWithVariables(`{"userId": "one"}`), &input)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

func TestResponder_DecodeStopsOnSchemaViolation(t *testing.T) {
	r := NewResponder("project-apply", stubValidator{err: errors.NewInvalidInputError("(root): projectId is required")}, logger.NewTestLogger(t))

	var input map[string]interface{}
	err := r.Decode(jobWithVariables(`{"userId": 1}`), &input)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	assert.Nil(t, input)
}

func TestExecuteWithRetry(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		out, err := executeWithRetry(context.Background(), cfg, func(context.Context) (interface{}, error) {
			calls++
			if calls < 2 {
				return nil, stderrors.New("rpc error: code = Unavailable")
			}
			return "ok", nil
		}, "complete job")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		_, err := executeWithRetry(context.Background(), cfg, func(context.Context) (interface{}, error) {
			calls++
			return nil, stderrors.New("rpc error: code = NotFound desc = job not found")
		}, "complete job")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, err.Error(), "complete job")
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := executeWithRetry(context.Background(), cfg, func(context.Context) (interface{}, error) {
			calls++
			return nil, stderrors.New("connection refused")
		}, "complete job")
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}

func TestResponder_JobContext(t *testing.T) {
	r := NewResponder("project-apply", nil, logger.NewNoOpLogger())

	t.Run("job deadline earlier than timeout", func(t *testing.T) {
		jobDeadline := time.Now().Add(3 * time.Second)
		job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Deadline: jobDeadline.UnixMilli()}}

		ctx, cancel := r.JobContext(job, 30*time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.True(t, deadline.Before(jobDeadline), "handler must stop before Zeebe reactivates the job")
		assert.WithinDuration(t, jobDeadline.Add(-jobDeadlineMargin), deadline, 5*time.Millisecond)
	})

	t.Run("timeout earlier than job deadline", func(t *testing.T) {
		job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Deadline: time.Now().Add(time.Minute).UnixMilli()}}

		ctx, cancel := r.JobContext(job, 2*time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, 100*time.Millisecond)
	})

	t.Run("no job deadline", func(t *testing.T) {
		ctx, cancel := r.JobContext(jobWithVariables(`{}`), 2*time.Second)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, 100*time.Millisecond)
	})

	t.Run("job deadline already within margin", func(t *testing.T) {
		job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Deadline: time.Now().Add(200 * time.Millisecond).UnixMilli()}}

		ctx, cancel := r.JobContext(job, 30*time.Second)
		defer cancel()

		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	})
}
