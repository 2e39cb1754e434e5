package signing

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/signing/provider"
)

var errEmptyProviderID = errors.New("empty provider document id")

// Coordinator submits signing requests to the provider.
type Coordinator struct {
	Provider provider.Client
	TestMode bool
	Now      func() time.Time
}

// Payload converts req into the provider's document creation request.
func (c *Coordinator) Payload(req SigningRequest, artifactURL string) provider.DispatchPayload {
	payload := provider.DispatchPayload{
		FileURL:    artifactURL,
		Name:       req.Name,
		Recipients: make([]provider.Recipient, 0, len(req.Recipients)),
		TestMode:   c.TestMode,
	}
	if req.DocumentID != "" {
		payload.Metadata = &provider.Metadata{DocumentID: req.DocumentID}
	}
	for _, r := range req.Recipients {
		fields := make([]provider.Field, 0, len(r.Fields))
		for _, pos := range r.Fields {
			fields = append(fields, provider.Field{
				Type:   provider.FieldTypeSignature,
				Page:   pos.Page,
				X:      pos.X,
				Y:      pos.Y,
				Width:  pos.Width,
				Height: pos.Height,
			})
		}
		payload.Recipients = append(payload.Recipients, provider.Recipient{
			ID:     strconv.Itoa(r.Order),
			Name:   r.Name,
			Email:  r.Email,
			Order:  r.Order,
			Fields: fields,
		})
	}
	return payload
}

// Dispatch submits req referencing the artifact at artifactURL and returns
// the signing record to store. It does not modify doc or guard against a
// second dispatch; callers check the draft status first.
func (c *Coordinator) Dispatch(ctx context.Context, doc documents.Document, req SigningRequest, artifactURL string) (documents.SigningRecord, error) {
	created, err := c.Provider.CreateDocument(ctx, c.Payload(req, artifactURL))
	if err != nil {
		return documents.SigningRecord{}, newProviderError(err)
	}
	if created.ID == "" {
		return documents.SigningRecord{}, &SigningProviderError{
			Err:    errEmptyProviderID,
			Detail: "provider response carried no document id",
		}
	}

	now := c.now()
	rec := documents.SigningRecord{
		ProviderDocumentID:  created.ID,
		OriginalArtifactURL: artifactURL,
		Signers:             make([]documents.Signer, 0, len(req.Recipients)),
		CreatedAt:           now,
		LastUpdated:         now,
	}
	for _, r := range req.Recipients {
		rec.Signers = append(rec.Signers, documents.Signer{
			PlaceholderKey: r.PlaceholderKey,
			Name:           r.Name,
			Email:          r.Email,
			Order:          r.Order,
			Status:         documents.SignerPending,
		})
	}
	return rec, nil
}

// MarkDispatched moves a draft to pending_signature with rec attached and
// records the document_sent entry.
func MarkDispatched(doc *documents.Document, rec documents.SigningRecord, at time.Time) {
	doc.SigningRecord = rec.Clone()
	doc.Status = documents.StatusPendingSignature
	payload, _ := json.Marshal(map[string]any{
		"providerDocumentId": rec.ProviderDocumentID,
		"recipients":         len(rec.Signers),
	})
	doc.AuditTrail.Append(documents.TrackingEvent{
		EventType:  documents.EventDocumentSent,
		Timestamp:  at,
		ReceivedAt: at,
		RawPayload: payload,
	})
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
