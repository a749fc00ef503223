package apply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"devhive-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type EventType string

const (
	EventApplicationCreated   EventType = "application.created"
	EventApplicationCancelled EventType = "application.cancelled"
	EventApplicationAccepted  EventType = "application.accepted"
	EventApplicationRejected  EventType = "application.rejected"
)

// WorkflowEvent is published after a transition has been persisted.
type WorkflowEvent struct {
	EventType     EventType          `json:"eventType"`
	ApplicationID string             `json:"applicationId"`
	ProjectID     int64              `json:"projectId"`
	UserID        int64              `json:"userId"`
	Status        models.ApplyStatus `json:"status"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

func newWorkflowEvent(eventType EventType, app models.Application, now time.Time) WorkflowEvent {
	return WorkflowEvent{
		EventType:     eventType,
		ApplicationID: app.ID,
		ProjectID:     app.ProjectID,
		UserID:        app.UserID,
		Status:        app.Status,
		OccurredAt:    now.UTC(),
	}
}

// Publisher delivers workflow events one way. Delivery failures never undo
// the transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event WorkflowEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, WorkflowEvent) error { return nil }

// SNSAPI is the subset of the SNS client used for publishing.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSPublisher publishes each event as a JSON message on one topic, with the
// event type as a message attribute for subscription filters.
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewSNSPublisher(client SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, event WorkflowEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.EventType)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s event to %s: %w", event.EventType, p.topicARN, err)
	}
	return nil
}
