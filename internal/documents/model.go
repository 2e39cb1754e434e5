package documents

import (
	"encoding/json"
	"time"

	"signflow-backend/internal/placeholders"
	"signflow-backend/internal/render"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingSignature Status = "pending_signature"
	StatusCompleted        Status = "completed"
	StatusDeclined         Status = "declined"
	StatusExpired          Status = "expired"
	StatusCanceled         Status = "canceled"
)

// IsTerminal reports whether no further status transition is accepted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusExpired, StatusCanceled:
		return true
	default:
		return false
	}
}

// SignerStatus is a single party's progress.
type SignerStatus string

const (
	SignerPending  SignerStatus = "pending"
	SignerViewed   SignerStatus = "viewed"
	SignerSigned   SignerStatus = "signed"
	SignerDeclined SignerStatus = "declined"
)

// Signer is a party asked to sign. PlaceholderKey is the name of the
// signer-flagged placeholder the party came from (empty for additional
// signers); Name is the human display name.
type Signer struct {
	PlaceholderKey string       `json:"placeholderKey,omitempty"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Order          int          `json:"order"`
	Status         SignerStatus `json:"status"`
}

// SigningRecord tracks the provider-side copy of a dispatched document.
// The artifact fields hold object store keys.
type SigningRecord struct {
	ProviderDocumentID  string    `json:"providerDocumentId"`
	OriginalArtifactURL string    `json:"originalArtifactUrl"`
	SignedArtifactURL   string    `json:"signedArtifactUrl,omitempty"`
	Signers             []Signer  `json:"signers"`
	CreatedAt           time.Time `json:"createdAt"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// Clone returns a deep copy.
func (r *SigningRecord) Clone() *SigningRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Signers = append([]Signer(nil), r.Signers...)
	return &out
}

// TrackingEvent is one entry of the audit trail. Timestamp is the time the
// event claims to have happened; ReceivedAt is when it reached us.
type TrackingEvent struct {
	EventType   string          `json:"eventType"`
	Timestamp   time.Time       `json:"timestamp"`
	ReceivedAt  time.Time       `json:"receivedAt"`
	SignerEmail string          `json:"signer,omitempty"`
	RawPayload  json.RawMessage `json:"rawPayload,omitempty"`
}

// Internal audit event types. Provider events use the provider's names.
const (
	EventDocumentSent            = "document_sent"
	EventSignedArtifactStored    = "signed_artifact_stored"
	EventArtifactRetrievalFailed = "artifact_retrieval_failed"
)

// Document is the aggregate owning its placeholders, signing record and audit trail.
type Document struct {
	ID            string
	Title         string
	Header        string
	Body          string
	Placeholders  []placeholders.Placeholder
	Status        Status
	SigningRecord *SigningRecord
	AuditTrail    AuditTrail
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Placeholders = make([]placeholders.Placeholder, 0, len(d.Placeholders))
	for _, p := range d.Placeholders {
		out.Placeholders = append(out.Placeholders, p.Clone())
	}
	out.SigningRecord = d.SigningRecord.Clone()
	out.AuditTrail = d.AuditTrail.Clone()
	return out
}

// Signers returns the dispatched signers, if any.
func (d Document) Signers() []Signer {
	if d.SigningRecord == nil {
		return nil
	}
	return d.SigningRecord.Signers
}

// SignedArtifactPending reports a completed document whose signed copy has not been stored yet.
func (d Document) SignedArtifactPending() bool {
	return d.Status == StatusCompleted && (d.SigningRecord == nil || d.SigningRecord.SignedArtifactURL == "")
}

// Editable reports whether content and placeholders may still change.
func (d Document) Editable() bool {
	return d.Status == StatusDraft
}

// Content returns the substituted content handed to the artifact renderer.
func (d Document) Content() render.Content {
	return render.Content{
		Title:  d.Title,
		Header: placeholders.Substitute(d.Header, d.Placeholders),
		Body:   placeholders.Substitute(d.Body, d.Placeholders),
	}
}

// Source is the text scanned for placeholder tokens.
func (d Document) Source() string {
	if d.Header == "" {
		return d.Body
	}
	return d.Header + "\n" + d.Body
}
