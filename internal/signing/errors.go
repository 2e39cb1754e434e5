package signing

import (
	"errors"
	"fmt"
	"strings"

	"signflow-backend/internal/signing/provider"
)

var (
	// ErrAlreadyDispatched indicates the document has left the draft state.
	ErrAlreadyDispatched = errors.New("document has already been dispatched")

	// ErrNotCompleted indicates a signed artifact was requested before completion.
	ErrNotCompleted = errors.New("document is not completed")

	// ErrArtifactPending indicates a completed document whose signed artifact is not stored yet.
	ErrArtifactPending = errors.New("signed artifact pending retrieval")

	// ErrRetrievalInProgress indicates another retrieval holds the document lock.
	ErrRetrievalInProgress = errors.New("signed artifact retrieval already in progress")

	// ErrMalformedWebhook indicates a webhook body we cannot interpret.
	ErrMalformedWebhook = errors.New("malformed webhook payload")

	// ErrInvalidSignature indicates a webhook whose signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// FieldError names one rejected input.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is malformed or incomplete signer input at dispatch time.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid signing request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// SigningProviderError is a rejected or failed provider call. StatusCode
// is zero when the provider was never reached.
type SigningProviderError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *SigningProviderError) Error() string {
	return fmt.Sprintf("signing provider: %v", e.Err)
}

func (e *SigningProviderError) Unwrap() error { return e.Err }

func newProviderError(err error) *SigningProviderError {
	out := &SigningProviderError{Err: err, Detail: err.Error()}
	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		out.StatusCode = perr.StatusCode
		out.Detail = perr.Detail
	}
	return out
}

// ArtifactFetchError is a failed attempt to retrieve or store a signed artifact.
type ArtifactFetchError struct {
	DocumentID string
	Step       string
	Err        error
}

func (e *ArtifactFetchError) Error() string {
	return fmt.Sprintf("signed artifact for %s: %s: %v", e.DocumentID, e.Step, e.Err)
}

func (e *ArtifactFetchError) Unwrap() error { return e.Err }
