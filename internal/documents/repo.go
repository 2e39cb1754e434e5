package documents

import (
	"bytes"
	"context"
)

// UpdateFunc mutates a freshly loaded copy of a document. Returning an error
// aborts the update and nothing is written.
type UpdateFunc func(doc *Document) error

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, documentID string) (Document, error)
	GetByProviderDocumentID(ctx context.Context, providerDocumentID string) (Document, error)
	// List returns documents newest first without their audit trails.
	List(ctx context.Context, limit, offset int) ([]Document, error)
	// Update applies fn as one atomic read-modify-write. Audit entries
	// appended by fn are persisted after the existing ones.
	Update(ctx context.Context, documentID string, fn UpdateFunc) (Document, error)
	AppendAuditEntry(ctx context.Context, documentID string, entry TrackingEvent) error
}

func checkUpdate(before Document, after Document) error {
	if after.ID != before.ID {
		return ErrInvalidInput
	}
	if after.AuditTrail.Len() < before.AuditTrail.Len() {
		return ErrAuditRewritten
	}
	prior := before.AuditTrail.Entries()
	kept := after.AuditTrail.Entries()[:len(prior)]
	for i := range prior {
		if !sameEvent(prior[i], kept[i]) {
			return ErrAuditRewritten
		}
	}
	return nil
}

func sameEvent(a, b TrackingEvent) bool {
	return a.EventType == b.EventType &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.ReceivedAt.Equal(b.ReceivedAt) &&
		a.SignerEmail == b.SignerEmail &&
		bytes.Equal(a.RawPayload, b.RawPayload)
}
