package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"muxlti/internal/logger"
)

const (
	sqsWaitTimeSeconds = 20
	sqsMaxMessages     = 10
	sqsRetryDelay      = 5 * time.Second
)

// SQSAPI - методы клиента SQS, используемые очередью.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue хранит задачи в Amazon SQS. Сообщение удаляется только после
// успешного выполнения, иначе SQS доставит его повторно.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
	registry *Registry
	log      *logger.Logger
}

func NewSQSQueue(client SQSAPI, queueURL string, registry *Registry, log *logger.Logger) *SQSQueue {
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		registry: registry,
		log:      log.With("component", "SQSQueue"),
	}
}

func (q *SQSQueue) Dispatch(ctx context.Context, name string, payload interface{}) error {
	msg, err := NewMessage(name, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode task message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task %s: %w", name, err)
	}
	return nil
}

// Run читает очередь long polling'ом до отмены контекста.
func (q *SQSQueue) Run(ctx context.Context) error {
	q.log.Info("sqs worker started", "queue", q.queueURL)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := q.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.log.Error("receive message error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sqsRetryDelay):
			}
		}
	}
}

func (q *SQSQueue) poll(ctx context.Context) error {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: sqsMaxMessages,
		WaitTimeSeconds:     sqsWaitTimeSeconds,
	})
	if err != nil {
		return err
	}

	for _, m := range out.Messages {
		q.handle(ctx, aws.ToString(m.Body), m.ReceiptHandle)
	}
	return nil
}

func (q *SQSQueue) handle(ctx context.Context, body string, receiptHandle *string) {
	var msg Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		q.log.Error("invalid message body", "error", err)
		// битое сообщение удаляем, иначе оно будет приходить бесконечно
		q.delete(ctx, receiptHandle)
		return
	}

	if err := q.registry.Run(ctx, msg); err != nil {
		if errors.Is(err, ErrUnknownTask) {
			q.log.Error("unknown task, dropping message", "task", msg.Name)
			q.delete(ctx, receiptHandle)
			return
		}
		q.log.Error("task failed, leaving message for redelivery", "task", msg.Name, "error", err)
		return
	}
	q.delete(ctx, receiptHandle)
}

func (q *SQSQueue) delete(ctx context.Context, receiptHandle *string) {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		q.log.Error("failed to delete message", "error", err)
	}
}
