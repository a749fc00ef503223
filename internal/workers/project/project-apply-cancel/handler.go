// internal/workers/project/project-apply-cancel/handler.go
package projectapplycancel

import (
	"context"

	"devhive-workers/internal/common/camunda"
	"devhive-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "project-apply-cancel"
)

type Canceller interface {
	Cancel(ctx context.Context, userID, projectID int64) (bool, error)
}

type Handler struct {
	config    *Config
	workflow  Canceller
	responder *camunda.Responder
	logger    logger.Logger
}

func NewHandler(config *Config, workflow Canceller, validator camunda.InputValidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		workflow:  workflow,
		responder: camunda.NewResponder(TaskType, validator, log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := h.responder.Decode(job, &input); err != nil {
		h.responder.Fail(context.Background(), client, job, err)
		return
	}

	ctx, cancel := h.responder.JobContext(job, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.responder.Fail(context.Background(), client, job, err)
		return
	}

	h.responder.Complete(context.Background(), client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	cancelled, err := h.workflow.Cancel(ctx, input.UserID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	if !cancelled {
		h.logger.Debug("nothing to cancel", map[string]interface{}{
			"userId":    input.UserID,
			"projectId": input.ProjectID,
		})
	}

	return &Output{Cancelled: cancelled}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
