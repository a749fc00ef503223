// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient is the topic client behind workflow event publishing.
type SNSClient struct {
	client *sns.Client
}

// NewSNSClient resolves credentials through the default chain
// (env, shared config, instance role).
func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// CheckTopic confirms the topic exists and the credentials can read it.
func (s *SNSClient) CheckTopic(ctx context.Context, topicARN string) error {
	_, err := s.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(topicARN),
	})
	if err != nil {
		return fmt.Errorf("sns topic %s: %w", topicARN, err)
	}
	return nil
}
