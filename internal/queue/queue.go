package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Enqueuer delivers one message body to a queue. The queue enforces a
// maximum message size; staying under it is the report publisher's job,
// not the enqueuer's.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueURL, body string) error
}

// SQSQueue is the production Enqueuer over Amazon SQS.
type SQSQueue struct {
	client *sqs.Client
}

func NewSQSQueue(cfg aws.Config) *SQSQueue {
	return &SQSQueue{client: sqs.NewFromConfig(cfg)}
}

// QueueURLByName resolves a queue name to its URL once at startup.
func (q *SQSQueue) QueueURLByName(ctx context.Context, name string) (string, error) {
	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("resolve queue %q: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

func (q *SQSQueue) Enqueue(ctx context.Context, queueURL, body string) error {
	if queueURL == "" {
		return fmt.Errorf("enqueue: queue url required")
	}
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("enqueue to %s: %w", queueURL, err)
	}
	return nil
}
