package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Reminder is the payload delivered to the notification worker ahead of an
// appointment.
type Reminder struct {
	ProjectID   string `json:"project_id"`
	ClientID    string `json:"client_id"`
	BookingID   string `json:"booking_id"`
	Specialist  string `json:"specialist"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Service     string `json:"service,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`
	EnqueuedAt  string `json:"enqueued_at"`
}

// Sink accepts reminders for async delivery.
type Sink interface {
	Enqueue(ctx context.Context, r Reminder) error
}

// sqsAPI is the subset of the SQS client the sink uses.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink publishes reminders to an SQS queue.
type SQSSink struct {
	client   sqsAPI
	queueURL string
	now      func() time.Time
}

// NewSQSSink creates a sink around the provided SQS client. If queueURL is
// empty, Enqueue is a no-op.
func NewSQSSink(client sqsAPI, queueURL string) *SQSSink {
	if client == nil && queueURL != "" {
		panic("reminders: SQS client cannot be nil")
	}
	return &SQSSink{client: client, queueURL: queueURL, now: time.Now}
}

func (s *SQSSink) Enqueue(ctx context.Context, r Reminder) error {
	if s.queueURL == "" {
		return nil
	}
	if r.EnqueuedAt == "" {
		r.EnqueuedAt = s.now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("reminders: marshal reminder: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("reminders: failed to send SQS message: %w", err)
	}
	return nil
}

// MemorySink collects reminders in memory for tests and local runs.
type MemorySink struct {
	Sent []Reminder
}

func (m *MemorySink) Enqueue(_ context.Context, r Reminder) error {
	m.Sent = append(m.Sent, r)
	return nil
}
