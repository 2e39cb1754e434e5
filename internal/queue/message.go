package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// KindRetrieveSignedArtifact asks a worker to fetch and store a completed document's signed PDF.
const KindRetrieveSignedArtifact = "retrieve_signed_artifact"

// MessageVersion is the current payload version.
const MessageVersion = 1

// ErrMissingDocumentID indicates a job without a target document.
var ErrMissingDocumentID = errors.New("message has no documentId")

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind       string `json:"kind"`
	DocumentID string `json:"documentId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. A missing kind
// defaults to KindRetrieveSignedArtifact.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	msg.DocumentID = strings.TrimSpace(msg.DocumentID)
	if msg.Kind == "" {
		msg.Kind = KindRetrieveSignedArtifact
	}
	if msg.DocumentID == "" {
		return msg, ErrMissingDocumentID
	}
	return msg, nil
}
