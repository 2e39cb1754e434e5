package workerproc

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"signflow-backend/internal/shared/metrics"
	"signflow-backend/internal/shared/telemetry"
)

const (
	defaultConcurrency       = 4
	defaultVisibilitySeconds = 300
	defaultWaitSeconds       = 20
	defaultShutdownTimeout   = 30 * time.Second
)

// SQSAPI is the subset of the SQS client the consumer needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls a queue and runs jobs with bounded concurrency.
type Consumer struct {
	API               SQSAPI
	QueueURL          string
	Retriever         Retriever
	Concurrency       int
	VisibilitySeconds int32
	WaitSeconds       int32
	ShutdownTimeout   time.Duration
}

// Run polls until ctx is canceled, then waits for in-flight jobs up to
// ShutdownTimeout.
func (c *Consumer) Run(ctx context.Context) {
	concurrency := c.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	visibility := c.VisibilitySeconds
	if visibility <= 0 {
		visibility = defaultVisibilitySeconds
	}
	wait := c.WaitSeconds
	if wait <= 0 {
		wait = defaultWaitSeconds
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue_url":   c.QueueURL,
		"concurrency": concurrency,
		"visibility":  visibility,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := c.API.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     wait,
			VisibilityTimeout:   visibility,
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// jobs finish even when shutdown starts mid-flight
				c.HandleMessage(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}

	timeout := c.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	telemetry.Info("worker.draining", map[string]any{"timeout_ms": timeout.Milliseconds()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// HandleMessage runs one received message and deletes it when it either
// succeeded or can never succeed.
func (c *Consumer) HandleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.DocumentID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.job.rejected", fields)
		if c.deleteMessage(ctx, msg, decoded.DocumentID, decoded.RequestID) {
			metrics.WorkerJobsTotal.WithLabelValues("deleted_unrecoverable").Inc()
		}
		return
	}

	telemetry.Info("worker.job.received", baseFields(msg, decoded.DocumentID, decoded.RequestID))

	if err := HandleMessage(ctx, c.Retriever, decoded); err != nil {
		fields := baseFields(msg, decoded.DocumentID, decoded.RequestID)
		fields["error"] = err.Error()
		if Permanent(err) {
			telemetry.Warn("worker.job.dropped", fields)
			if c.deleteMessage(ctx, msg, decoded.DocumentID, decoded.RequestID) {
				metrics.WorkerJobsTotal.WithLabelValues("deleted_unrecoverable").Inc()
			}
			return
		}
		telemetry.Error("worker.job.failed", fields)
		metrics.WorkerJobsTotal.WithLabelValues("failed").Inc()
		return
	}

	if c.deleteMessage(ctx, msg, decoded.DocumentID, decoded.RequestID) {
		telemetry.Info("worker.job.completed", baseFields(msg, decoded.DocumentID, decoded.RequestID))
		metrics.WorkerJobsTotal.WithLabelValues("completed").Inc()
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, msg sqstypes.Message, documentID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.job.delete_failed", fields)
		return false
	}
	if _, err := c.API.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.QueueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.job.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, documentID, requestID string) map[string]any {
	fields := map[string]any{
		"document_id":    documentID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
