package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/queue"
	"signflow-backend/internal/signing"
)

// Retriever fetches and stores a completed document's signed artifact.
type Retriever interface {
	RetrieveSignedArtifact(ctx context.Context, documentID string) (documents.Document, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingDocumentID indicates a message missing the document id.
type ErrMissingDocumentID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingDocumentID) Error() string { return "missing document id" }

// ErrUnknownKind indicates a job this worker does not handle.
type ErrUnknownKind struct {
	Kind string
}

func (e ErrUnknownKind) Error() string { return "unknown job kind " + e.Kind }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process job"
	}
	return "process job: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if errors.Is(err, queue.ErrMissingDocumentID) {
		return msg, meta, ErrMissingDocumentID{Meta: meta, RequestID: msg.RequestID}
	}
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Kind != queue.KindRetrieveSignedArtifact {
		return msg, meta, ErrUnknownKind{Kind: msg.Kind}
	}
	return msg, meta, nil
}

// HandleMessage runs one decoded job.
func HandleMessage(ctx context.Context, r Retriever, msg queue.Message) error {
	if r == nil {
		return errors.New("artifact retriever not configured")
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return ErrMissingDocumentID{RequestID: msg.RequestID}
	}
	if _, err := r.RetrieveSignedArtifact(ctx, msg.DocumentID); err != nil {
		return ErrProcess{DocumentID: msg.DocumentID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Permanent reports whether redelivering the job cannot succeed, so the
// message should be dropped.
func Permanent(err error) bool {
	if err == nil {
		return false
	}
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingDocumentID
		unknown ErrUnknownKind
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &missing), errors.As(err, &unknown):
		return true
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, signing.ErrNotCompleted):
		return true
	default:
		return false
	}
}
