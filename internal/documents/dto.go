package documents

import (
	"time"

	"signflow-backend/internal/placeholders"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID    string                     `json:"documentId"`
	Title         string                     `json:"title"`
	Header        string                     `json:"header"`
	Body          string                     `json:"body"`
	Status        Status                     `json:"status"`
	Placeholders  []placeholders.Placeholder `json:"placeholders"`
	SigningRecord *SigningRecord             `json:"signingRecord,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// SummaryResponse is a list entry.
type SummaryResponse struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type createRequest struct {
	TemplateID   string                     `json:"templateId"`
	Title        string                     `json:"title"`
	Header       string                     `json:"header"`
	Body         string                     `json:"body"`
	Placeholders []placeholders.Placeholder `json:"placeholders"`
}

type contentRequest struct {
	Header string `json:"header"`
	Body   string `json:"body"`
}

type placeholdersRequest struct {
	Placeholders []placeholders.Placeholder `json:"placeholders"`
}

type valueErrorDetail struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ToResponse converts a document for JSON output.
func ToResponse(doc Document) DocumentResponse {
	ps := doc.Placeholders
	if ps == nil {
		ps = []placeholders.Placeholder{}
	}
	return DocumentResponse{
		DocumentID:    doc.ID,
		Title:         doc.Title,
		Header:        doc.Header,
		Body:          doc.Body,
		Status:        doc.Status,
		Placeholders:  ps,
		SigningRecord: doc.SigningRecord,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toSummary(doc Document) SummaryResponse {
	return SummaryResponse{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Status:     doc.Status,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
