// internal/workers/project/project-apply-status/handler.go
package projectapplystatus

import (
	"context"

	"devhive-workers/internal/common/camunda"
	"devhive-workers/internal/common/logger"
	"devhive-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "project-apply-status"
)

type StatusReader interface {
	StatusFor(ctx context.Context, userID, projectID int64) (models.ApplyStatus, bool, error)
}

type Handler struct {
	config    *Config
	workflow  StatusReader
	responder *camunda.Responder
	logger    logger.Logger
}

func NewHandler(config *Config, workflow StatusReader, validator camunda.InputValidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		workflow:  workflow,
		responder: camunda.NewResponder(TaskType, validator, log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
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
	status, ok, err := h.workflow.StatusFor(ctx, input.UserID, input.ProjectID)
	if err != nil {
		return nil, err
	}
	return &Output{HasApplied: ok, ApplicationStatus: string(status)}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
