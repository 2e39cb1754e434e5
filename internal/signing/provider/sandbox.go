package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Sandbox is an in-process Client used when no provider is configured and
// in tests. It records every dispatch and serves artifacts registered with
// SetCompletedArtifact.
type Sandbox struct {
	mu        sync.Mutex
	created   []DispatchPayload
	artifacts map[string][]byte
	downloads int
	nextID    int

	CreateErr   error
	DownloadErr error
}

// NewSandbox creates an empty Sandbox.
func NewSandbox() *Sandbox {
	return &Sandbox{artifacts: make(map[string][]byte)}
}

// CreateDocument records payload and returns a sequential id.
func (s *Sandbox) CreateDocument(ctx context.Context, payload DispatchPayload) (CreatedDocument, error) {
	if err := ctx.Err(); err != nil {
		return CreatedDocument{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return CreatedDocument{}, s.CreateErr
	}
	s.nextID++
	s.created = append(s.created, payload)
	return CreatedDocument{ID: fmt.Sprintf("sandbox-%d", s.nextID), Status: "pending"}, nil
}

// DownloadCompleted returns the registered artifact for id.
func (s *Sandbox) DownloadCompleted(ctx context.Context, providerDocumentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads++
	if s.DownloadErr != nil {
		return nil, s.DownloadErr
	}
	data, ok := s.artifacts[providerDocumentID]
	if !ok {
		return nil, &ProviderError{StatusCode: http.StatusNotFound, Detail: `{"error":"document not completed"}`}
	}
	return append([]byte(nil), data...), nil
}

// SetCompletedArtifact registers the signed PDF for a provider document.
func (s *Sandbox) SetCompletedArtifact(providerDocumentID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[providerDocumentID] = append([]byte(nil), data...)
}

// Created returns the recorded dispatch payloads.
func (s *Sandbox) Created() []DispatchPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DispatchPayload(nil), s.created...)
}

// Downloads returns how many artifact downloads were attempted.
func (s *Sandbox) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

var _ Client = (*Sandbox)(nil)
