// internal/workers/project/project-apply-list/handler.go
package projectapplylist

import (
	"context"
	"time"

	"devhive-workers/internal/common/camunda"
	"devhive-workers/internal/common/logger"
	"devhive-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "project-apply-list"
)

type Lister interface {
	ListByProject(ctx context.Context, projectID int64) ([]models.Application, error)
}

type Handler struct {
	config    *Config
	workflow  Lister
	responder *camunda.Responder
	logger    logger.Logger
}

func NewHandler(config *Config, workflow Lister, validator camunda.InputValidator, log logger.Logger) *Handler {
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
	apps, err := h.workflow.ListByProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	// never nil, so the process variable is [] rather than null
	summaries := make([]ApplicationSummary, 0, len(apps))
	for _, app := range apps {
		summaries = append(summaries, ApplicationSummary{
			ApplicationID: app.ID,
			ProjectID:     app.ProjectID,
			UserID:        app.UserID,
			Status:        string(app.Status),
			CreatedAt:     app.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &Output{
		Applications: summaries,
		Count:        len(summaries),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
