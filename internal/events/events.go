package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Publisher fans discrete lifecycle events (accepted, sleep, stop) out
// to the event pipeline. Publishing is fire-and-forget from the
// caller's point of view: failures are logged upstream, never retried.
type Publisher interface {
	Publish(ctx context.Context, topic, message string) error
}

// UserEvent is the common payload shape for lifecycle events keyed by
// user. Data is present only on accepted-offer events and carries the
// offer payload verbatim.
type UserEvent struct {
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (e UserEvent) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode user event: %w", err)
	}
	return string(b), nil
}

// SNSPublisher publishes to SNS topics by ARN.
type SNSPublisher struct {
	client *sns.Client
}

func NewSNSPublisher(cfg aws.Config) *SNSPublisher {
	return &SNSPublisher{client: sns.NewFromConfig(cfg)}
}

func (p *SNSPublisher) Publish(ctx context.Context, topic, message string) error {
	if topic == "" {
		return fmt.Errorf("sns publish: topic arn required")
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topic),
		Message:  aws.String(message),
		Subject:  aws.String("msg"),
	})
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", topic, err)
	}
	return nil
}

// NopPublisher discards events. Used when no event pipeline is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic, message string) error {
	return nil
}
