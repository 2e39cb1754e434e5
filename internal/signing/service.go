package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/metrics"
	"signflow-backend/internal/shared/storage/object"
	"signflow-backend/internal/shared/telemetry"
	"signflow-backend/internal/shared/util"
)

const defaultArtifactURLTTL = time.Hour

// Service sends draft documents out for signature.
type Service struct {
	Repo           documents.Repo
	Renderer       render.Renderer
	Store          object.ObjectStore
	Coordinator    *Coordinator
	ArtifactURLTTL time.Duration
	Now            func() time.Time
}

// SendInput maps signer placeholders to emails and adds extra parties.
type SendInput struct {
	SignerEmails      map[string]string
	AdditionalSigners []AdditionalSigner
}

// Send validates, renders, uploads and dispatches a draft, then stores the
// signing record. Any failure leaves the stored document as it was.
func (s *Service) Send(ctx context.Context, documentID string, in SendInput) (documents.Document, error) {
	doc, err := s.Repo.Get(ctx, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status != documents.StatusDraft {
		return documents.Document{}, ErrAlreadyDispatched
	}

	req, err := BuildSigningRequest(doc, in.SignerEmails, in.AdditionalSigners)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("invalid").Inc()
		return documents.Document{}, err
	}

	started := time.Now()
	data, err := s.Renderer.Render(ctx, doc.Content())
	metrics.ObserveRender(started)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("render_failed").Inc()
		var renderErr *render.ArtifactRenderError
		if !errors.As(err, &renderErr) {
			err = &render.ArtifactRenderError{Err: err}
		}
		return documents.Document{}, err
	}

	key := fmt.Sprintf("documents/%s/original-%s.pdf", doc.ID, util.ShortDigest(data))
	if _, err := s.Store.Put(ctx, key, "application/pdf", bytes.NewReader(data)); err != nil {
		metrics.DispatchesTotal.WithLabelValues("upload_failed").Inc()
		return documents.Document{}, fmt.Errorf("store artifact: %w", err)
	}
	artifactURL, err := s.Store.URL(ctx, key, s.urlTTL())
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("upload_failed").Inc()
		return documents.Document{}, fmt.Errorf("artifact url: %w", err)
	}

	rec, err := s.Coordinator.Dispatch(ctx, doc, req, artifactURL)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("provider_error").Inc()
		telemetry.Warn("signing.dispatch.provider_error", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return documents.Document{}, err
	}
	// the presigned link expires; keep the key
	rec.OriginalArtifactURL = key

	updated, err := s.Repo.Update(ctx, doc.ID, func(d *documents.Document) error {
		if d.Status != documents.StatusDraft {
			return ErrAlreadyDispatched
		}
		MarkDispatched(d, rec, s.now())
		return nil
	})
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("persist_failed").Inc()
		telemetry.Error("signing.dispatch.persist_failed", map[string]any{
			"document_id":          doc.ID,
			"provider_document_id": rec.ProviderDocumentID,
			"error":                err.Error(),
		})
		return documents.Document{}, err
	}

	metrics.DispatchesTotal.WithLabelValues("sent").Inc()
	telemetry.Info("signing.dispatch.sent", map[string]any{
		"document_id":          doc.ID,
		"provider_document_id": rec.ProviderDocumentID,
		"recipients":           len(rec.Signers),
	})
	return updated, nil
}

// SignedArtifact returns the stored signed PDF for a completed document.
func (s *Service) SignedArtifact(ctx context.Context, documentID string) (documents.Document, []byte, error) {
	doc, err := s.Repo.Get(ctx, documentID)
	if err != nil {
		return documents.Document{}, nil, err
	}
	if doc.Status != documents.StatusCompleted {
		return doc, nil, ErrNotCompleted
	}
	if doc.SignedArtifactPending() {
		return doc, nil, ErrArtifactPending
	}
	data, err := object.ReadAll(ctx, s.Store, doc.SigningRecord.SignedArtifactURL)
	if err != nil {
		return doc, nil, fmt.Errorf("read signed artifact: %w", err)
	}
	return doc, data, nil
}

func (s *Service) urlTTL() time.Duration {
	if s.ArtifactURLTTL > 0 {
		return s.ArtifactURLTTL
	}
	return defaultArtifactURLTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
