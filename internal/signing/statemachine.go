package signing

import (
	"encoding/json"
	"strings"
	"time"

	"signflow-backend/internal/documents"
)

// Provider event types.
const (
	EventDocumentViewed    = "document_viewed"
	EventDocumentSigned    = "document_signed"
	EventDocumentCompleted = "document_completed"
	EventDocumentDeclined  = "document_declined"
	EventDocumentExpired   = "document_expired"
	EventDocumentCanceled  = "document_canceled"
)

// ProviderEvent is one parsed webhook delivery.
type ProviderEvent struct {
	Type               string
	Time               time.Time
	SignerEmail        string
	SignerName         string
	ProviderDocumentID string
	Raw                json.RawMessage
}

// transition is one row of the event table.
type transition struct {
	signer   func(current documents.SignerStatus) documents.SignerStatus
	allSign  bool
	document documents.Status
}

var transitions = map[string]transition{
	EventDocumentViewed:    {signer: toViewed},
	EventDocumentSigned:    {signer: toSigned},
	EventDocumentCompleted: {allSign: true, document: documents.StatusCompleted},
	EventDocumentDeclined:  {signer: toDeclined, document: documents.StatusDeclined},
	EventDocumentExpired:   {document: documents.StatusExpired},
	EventDocumentCanceled:  {document: documents.StatusCanceled},
}

// toViewed never downgrades a signer who already signed or declined.
func toViewed(cur documents.SignerStatus) documents.SignerStatus {
	if cur == documents.SignerSigned || cur == documents.SignerDeclined {
		return cur
	}
	return documents.SignerViewed
}

func toSigned(documents.SignerStatus) documents.SignerStatus { return documents.SignerSigned }

func toDeclined(documents.SignerStatus) documents.SignerStatus { return documents.SignerDeclined }

// Outcome is the result of applying one event.
type Outcome struct {
	Document       documents.Document
	Entry          documents.TrackingEvent
	Recognized     bool
	SignerMatched  bool
	PreviousStatus documents.Status
	StatusChanged  bool

	// NeedsSignedArtifact is set only on the transition into completed,
	// so a repeated completion never triggers a second fetch.
	NeedsSignedArtifact bool
}

// Transition renders the status change as "from->to", or "" when none happened.
func (o Outcome) Transition() string {
	if !o.StatusChanged {
		return ""
	}
	return string(o.PreviousStatus) + "->" + string(o.Document.Status)
}

// Effect is a short label for metrics and logs.
func (o Outcome) Effect() string {
	switch {
	case !o.Recognized:
		return "unknown_event"
	case o.StatusChanged:
		return "status_changed"
	case o.SignerMatched:
		return "signer_updated"
	default:
		return "recorded"
	}
}

// ApplyEvent computes the effect of ev on doc without touching storage.
// The event is always appended to the audit trail. Document-level effects
// apply only to a pending document; a terminal document keeps its status
// while signer effects and the audit entry still land.
func ApplyEvent(doc documents.Document, ev ProviderEvent, receivedAt time.Time) Outcome {
	next := doc.Clone()
	out := Outcome{PreviousStatus: doc.Status}
	out.Entry = documents.TrackingEvent{
		EventType:   ev.Type,
		Timestamp:   ev.Time,
		ReceivedAt:  receivedAt,
		SignerEmail: strings.TrimSpace(ev.SignerEmail),
		RawPayload:  append(json.RawMessage(nil), ev.Raw...),
	}

	t, ok := transitions[ev.Type]
	out.Recognized = ok
	if ok && next.SigningRecord != nil {
		signers := next.SigningRecord.Signers
		switch {
		case t.allSign:
			for i := range signers {
				signers[i].Status = documents.SignerSigned
			}
		case t.signer != nil:
			if i := matchSigner(signers, ev.SignerEmail); i >= 0 {
				signers[i].Status = t.signer(signers[i].Status)
				out.SignerMatched = true
			}
		}
		next.SigningRecord.LastUpdated = receivedAt
	}

	if ok && t.document != "" && next.Status == documents.StatusPendingSignature {
		next.Status = t.document
		out.StatusChanged = true
		out.NeedsSignedArtifact = t.document == documents.StatusCompleted
	}

	next.AuditTrail.Append(out.Entry)
	out.Document = next
	return out
}

func matchSigner(signers []documents.Signer, email string) int {
	email = strings.TrimSpace(email)
	if email == "" {
		return -1
	}
	for i, s := range signers {
		if strings.EqualFold(s.Email, email) {
			return i
		}
	}
	return -1
}
