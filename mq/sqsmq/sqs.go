package sqsmq

import (
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/zlnvch/placebot/mq"
)

// SQSTokenQueue reads token messages the capture extension pushes to SQS.
type SQSTokenQueue struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSTokenQueue(ctx context.Context, devMode bool, sqsEndpoint string, queueName string) (*SQSTokenQueue, error) {
	client, err := newSQSClient(ctx, devMode, sqsEndpoint)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return nil, err
	}

	return &SQSTokenQueue{client, aws.ToString(resp.QueueUrl)}, nil
}

func newSQSClient(ctx context.Context, devMode bool, sqsEndpoint string) (*sqs.Client, error) {
	if devMode {
		// Dummy credentials and a local endpoint for dev
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion("us-east-1"),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
			),
		)
		if err != nil {
			return nil, err
		}

		return sqs.New(sqs.Options{
			Credentials:      cfg.Credentials,
			Region:           cfg.Region,
			EndpointResolver: sqs.EndpointResolverFromURL(sqsEndpoint),
		}), nil
	}

	// Production/Fargate: default config (uses Task Role and AWS endpoints)
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return sqs.NewFromConfig(cfg), nil
}

// Receive long-polls the queue for one token message. Bodies that fail to
// parse are deleted on the spot; a poisoned message must not come back.
func (q *SQSTokenQueue) Receive(ctx context.Context, visibilityTimeout int32) (*mq.TokenMessage, error) {
	resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20, // long polling
		VisibilityTimeout:   visibilityTimeout,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Messages) == 0 {
		return nil, nil // empty poll
	}

	raw := resp.Messages[0]
	msg := &mq.TokenMessage{ReceiptHandle: aws.ToString(raw.ReceiptHandle)}
	if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), msg); err != nil {
		log.Printf("Dropping malformed token message: %v", err)
		if ackErr := q.Ack(ctx, msg); ackErr != nil {
			log.Printf("Failed to drop malformed token message: %v", ackErr)
		}
		return nil, nil
	}

	return msg, nil
}

func (q *SQSTokenQueue) Ack(ctx context.Context, msg *mq.TokenMessage) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	return err
}
