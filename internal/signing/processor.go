package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/queue"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/lock"
	"signflow-backend/internal/shared/metrics"
	"signflow-backend/internal/shared/storage/object"
	"signflow-backend/internal/shared/telemetry"
	"signflow-backend/internal/shared/util"
	"signflow-backend/internal/signing/provider"
)

const defaultRetrievalLockTTL = 2 * time.Minute

// Webhook outcomes reported back to the HTTP layer.
const (
	OutcomeProcessed       = "processed"
	OutcomeUnknownDocument = "unknown_document"
)

// Processor applies provider events and retrieves signed artifacts.
type Processor struct {
	Repo     documents.Repo
	Provider provider.Client
	Store    object.ObjectStore
	Locker   lock.Locker

	// Queue receives retry jobs for failed retrievals. Nil disables retries.
	Queue   queue.Client
	LockTTL time.Duration
	Now     func() time.Time
}

// WebhookResult summarizes one processed delivery.
type WebhookResult struct {
	Outcome          string `json:"outcome"`
	DocumentID       string `json:"documentId,omitempty"`
	EventType        string `json:"eventType"`
	StatusTransition string `json:"statusTransition,omitempty"`
	ArtifactStored   bool   `json:"artifactStored,omitempty"`
}

// HandleWebhook parses raw, applies it to the correlated document in one
// atomic update and, when the document just completed, retrieves the signed
// artifact. Only a malformed payload or a failed update returns an error;
// retrieval failures are recorded and retried out of band.
func (p *Processor) HandleWebhook(ctx context.Context, raw []byte) (WebhookResult, error) {
	ev, err := ParseWebhook(raw)
	if err != nil {
		return WebhookResult{}, err
	}
	result := WebhookResult{EventType: ev.Type}

	doc, err := p.Repo.GetByProviderDocumentID(ctx, ev.ProviderDocumentID)
	if errors.Is(err, documents.ErrNotFound) {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, OutcomeUnknownDocument).Inc()
		telemetry.Warn("signing.webhook.unknown_document", map[string]any{
			"event_type":           ev.Type,
			"provider_document_id": ev.ProviderDocumentID,
		})
		result.Outcome = OutcomeUnknownDocument
		return result, nil
	}
	if err != nil {
		return result, err
	}
	result.DocumentID = doc.ID

	var outcome Outcome
	receivedAt := p.now()
	if _, err := p.Repo.Update(ctx, doc.ID, func(d *documents.Document) error {
		outcome = ApplyEvent(*d, ev, receivedAt)
		*d = outcome.Document
		return nil
	}); err != nil {
		telemetry.Error("signing.webhook.update_failed", map[string]any{
			"document_id": doc.ID,
			"event_type":  ev.Type,
			"error":       err.Error(),
		})
		return result, err
	}

	result.Outcome = OutcomeProcessed
	result.StatusTransition = outcome.Transition()
	metrics.WebhookEventsTotal.WithLabelValues(ev.Type, outcome.Effect()).Inc()
	telemetry.Info("signing.webhook.applied", map[string]any{
		"document_id":       doc.ID,
		"event_type":        ev.Type,
		"effect":            outcome.Effect(),
		"signer_matched":    outcome.SignerMatched,
		"status_transition": result.StatusTransition,
	})

	if outcome.NeedsSignedArtifact {
		if _, err := p.RetrieveSignedArtifact(ctx, doc.ID); err != nil {
			p.recordRetrievalFailure(ctx, doc.ID, err)
		} else {
			result.ArtifactStored = true
		}
	}
	return result, nil
}

// RetrieveSignedArtifact downloads the finalized PDF for a completed
// document and stores it. It is a no-op when the artifact is already
// stored and is serialized per document.
func (p *Processor) RetrieveSignedArtifact(ctx context.Context, documentID string) (documents.Document, error) {
	release, err := p.Locker.Acquire(ctx, "signed-artifact:"+documentID, p.lockTTL())
	if errors.Is(err, lock.ErrNotAcquired) {
		return documents.Document{}, ErrRetrievalInProgress
	}
	if err != nil {
		return documents.Document{}, fmt.Errorf("acquire retrieval lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			telemetry.Warn("signing.artifact.release_failed", map[string]any{
				"document_id": documentID,
				"error":       err.Error(),
			})
		}
	}()

	doc, err := p.Repo.Get(ctx, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status != documents.StatusCompleted || doc.SigningRecord == nil {
		return doc, ErrNotCompleted
	}
	if !doc.SignedArtifactPending() {
		return doc, nil
	}

	data, err := p.Provider.DownloadCompleted(ctx, doc.SigningRecord.ProviderDocumentID)
	if err != nil {
		metrics.ArtifactRetrievalsTotal.WithLabelValues("download_failed").Inc()
		return doc, &ArtifactFetchError{DocumentID: documentID, Step: "download", Err: err}
	}
	pages, err := render.Inspect(data)
	if err != nil {
		metrics.ArtifactRetrievalsTotal.WithLabelValues("invalid_artifact").Inc()
		return doc, &ArtifactFetchError{DocumentID: documentID, Step: "inspect", Err: err}
	}
	key := fmt.Sprintf("documents/%s/signed-%s.pdf", documentID, util.ShortDigest(data))
	if _, err := p.Store.Put(ctx, key, "application/pdf", bytes.NewReader(data)); err != nil {
		metrics.ArtifactRetrievalsTotal.WithLabelValues("store_failed").Inc()
		return doc, &ArtifactFetchError{DocumentID: documentID, Step: "store", Err: err}
	}

	now := p.now()
	entry, _ := json.Marshal(map[string]any{
		"key":    key,
		"pages":  pages,
		"sha256": util.Digest(data),
	})
	updated, err := p.Repo.Update(ctx, documentID, func(d *documents.Document) error {
		if !d.SignedArtifactPending() {
			return nil
		}
		d.SigningRecord.SignedArtifactURL = key
		d.SigningRecord.LastUpdated = now
		d.AuditTrail.Append(documents.TrackingEvent{
			EventType:  documents.EventSignedArtifactStored,
			Timestamp:  now,
			ReceivedAt: now,
			RawPayload: entry,
		})
		return nil
	})
	if err != nil {
		metrics.ArtifactRetrievalsTotal.WithLabelValues("persist_failed").Inc()
		return doc, &ArtifactFetchError{DocumentID: documentID, Step: "persist", Err: err}
	}

	metrics.ArtifactRetrievalsTotal.WithLabelValues("stored").Inc()
	telemetry.Info("signing.artifact.stored", map[string]any{
		"document_id": documentID,
		"key":         key,
		"pages":       pages,
		"bytes":       len(data),
	})
	return updated, nil
}

// recordRetrievalFailure leaves a trace in the audit trail and schedules a retry.
func (p *Processor) recordRetrievalFailure(ctx context.Context, documentID string, cause error) {
	fields := map[string]any{
		"document_id": documentID,
		"error":       cause.Error(),
	}
	telemetry.Warn("signing.artifact.retrieval_failed", fields)

	if errors.Is(cause, ErrRetrievalInProgress) {
		return
	}

	now := p.now()
	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	if err := p.Repo.AppendAuditEntry(ctx, documentID, documents.TrackingEvent{
		EventType:  documents.EventArtifactRetrievalFailed,
		Timestamp:  now,
		ReceivedAt: now,
		RawPayload: payload,
	}); err != nil {
		fields["audit_error"] = err.Error()
		telemetry.Error("signing.artifact.audit_failed", fields)
	}

	if p.Queue == nil {
		return
	}
	if err := p.Queue.Send(ctx, queue.Message{
		Kind:       queue.KindRetrieveSignedArtifact,
		DocumentID: documentID,
		EnqueuedAt: now.Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}); err != nil {
		fields["queue_error"] = err.Error()
		telemetry.Error("signing.artifact.enqueue_failed", fields)
	}
}

func (p *Processor) lockTTL() time.Duration {
	if p.LockTTL > 0 {
		return p.LockTTL
	}
	return defaultRetrievalLockTTL
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
