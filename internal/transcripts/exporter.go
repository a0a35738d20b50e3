package transcripts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Record captures the outcome of one booking action for offline analysis.
type Record struct {
	ProjectID   string    `json:"project_id"`
	ClientID    string    `json:"client_id"`
	MessageID   string    `json:"message_id"`
	Action      string    `json:"action"`
	Success     bool      `json:"success"`
	Reason      string    `json:"reason,omitempty"`
	Message     string    `json:"message,omitempty"`
	Specialist  string    `json:"specialist,omitempty"`
	Date        string    `json:"date,omitempty"`
	Time        string    `json:"time,omitempty"`
	RawIntent   any       `json:"raw_intent,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
	ProcessedIn string    `json:"processed_in,omitempty"`
}

// Exporter persists action records somewhere durable.
type Exporter interface {
	Export(ctx context.Context, rec *Record) error
}

// S3API is the subset of the S3 client used by S3Exporter.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter writes one JSON object per action under a date-partitioned key.
type S3Exporter struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
	now      func() time.Time
}

// NewS3Exporter creates an exporter. If bucket is empty, Export is a no-op.
func NewS3Exporter(s3Client S3API, bucket string, logger *slog.Logger) *S3Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Exporter{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled reports whether export is configured.
func (e *S3Exporter) Enabled() bool {
	return e != nil && e.bucket != "" && e.s3Client != nil
}

func (e *S3Exporter) Export(ctx context.Context, rec *Record) error {
	if !e.Enabled() {
		return nil
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = e.now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("transcripts: marshal record: %w", err)
	}

	ts := rec.RecordedAt
	key := fmt.Sprintf("actions/v1/by-date/%d/%02d/%02d/%s.json",
		ts.Year(), ts.Month(), ts.Day(), exportID(rec))

	_, err = e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("transcripts: s3 put %s: %w", key, err)
	}

	e.logger.Info("exported action record",
		"project_id", rec.ProjectID,
		"s3_key", key,
		"action", rec.Action,
		"success", rec.Success,
	)
	return nil
}

func exportID(rec *Record) string {
	if rec.MessageID != "" {
		return rec.MessageID
	}
	return uuid.NewString()
}
