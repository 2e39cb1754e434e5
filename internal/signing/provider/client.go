package provider

import "context"

// FieldTypeSignature is the only field type we place.
const FieldTypeSignature = "signature"

// Field places an input on the artifact for one recipient.
type Field struct {
	Type   string  `json:"type"`
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Recipient is one signing party in the outbound payload.
type Recipient struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Order  int     `json:"order"`
	Fields []Field `json:"fields"`
}

// DispatchPayload is the document creation request sent to the provider.
type DispatchPayload struct {
	FileURL    string      `json:"file_url"`
	Name       string      `json:"name"`
	Recipients []Recipient `json:"recipients"`
	TestMode   bool        `json:"test_mode,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

// Metadata is echoed back by the provider on webhooks.
type Metadata struct {
	DocumentID string `json:"document_id,omitempty"`
}

// CreatedDocument is the provider's answer to a dispatch.
type CreatedDocument struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client talks to the external signing provider.
type Client interface {
	CreateDocument(ctx context.Context, payload DispatchPayload) (CreatedDocument, error)
	// DownloadCompleted returns the finalized signed PDF.
	DownloadCompleted(ctx context.Context, providerDocumentID string) ([]byte, error)
}
