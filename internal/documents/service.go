package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signflow-backend/internal/placeholders"
	"signflow-backend/internal/render"
	"signflow-backend/internal/templates"
)

// TemplateSource looks up document templates.
type TemplateSource interface {
	Get(id string) (templates.Template, error)
}

// Service contains business logic for drafting documents.
type Service struct {
	Repo      Repo
	Templates TemplateSource
	Renderer  render.Renderer
	Now       func() time.Time
}

// CreateInput describes a new draft. When TemplateID is set the template
// supplies header, body and placeholder defaults; the other fields override.
type CreateInput struct {
	TemplateID   string
	Title        string
	Header       string
	Body         string
	Placeholders []placeholders.Placeholder
}

// Create stores a new draft document.
func (s *Service) Create(ctx context.Context, in CreateInput) (Document, error) {
	if strings.TrimSpace(in.TemplateID) != "" {
		return s.CreateFromTemplate(ctx, in)
	}
	return s.CreateDraft(ctx, in)
}

// CreateDraft stores a draft from caller-supplied content, such as generated text.
func (s *Service) CreateDraft(ctx context.Context, in CreateInput) (Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return Document{}, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if err := placeholders.ValidateNames(in.Placeholders); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	doc := Document{
		ID:        uuid.NewString(),
		Title:     title,
		Header:    in.Header,
		Body:      in.Body,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.Placeholders = placeholders.Merge(placeholders.Extract(doc.Source()), in.Placeholders)
	if err := validateValues(doc.Placeholders); err != nil {
		return Document{}, err
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// CreateFromTemplate stores a draft seeded from a catalog template.
func (s *Service) CreateFromTemplate(ctx context.Context, in CreateInput) (Document, error) {
	if s.Templates == nil {
		return Document{}, fmt.Errorf("%w: templates are not configured", ErrInvalidInput)
	}
	tpl, err := s.Templates.Get(in.TemplateID)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return Document{}, fmt.Errorf("%w: unknown template %q", ErrInvalidInput, in.TemplateID)
		}
		return Document{}, err
	}
	if err := placeholders.ValidateNames(in.Placeholders); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	draft := CreateInput{
		Title:        tpl.Title,
		Header:       tpl.Header,
		Body:         tpl.Body,
		Placeholders: overlay(tpl.Placeholders, in.Placeholders),
	}
	if strings.TrimSpace(in.Title) != "" {
		draft.Title = in.Title
	}
	if in.Header != "" {
		draft.Header = in.Header
	}
	if strings.TrimSpace(in.Body) != "" {
		draft.Body = in.Body
	}
	return s.CreateDraft(ctx, draft)
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.Get(ctx, documentID)
}

// List returns documents newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Repo.List(ctx, limit, offset)
}

// UpdateContent replaces header and body, re-extracting placeholders while
// keeping every previously captured value.
func (s *Service) UpdateContent(ctx context.Context, documentID, header, body string) (Document, error) {
	if strings.TrimSpace(body) == "" {
		return Document{}, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	return s.Repo.Update(ctx, documentID, func(doc *Document) error {
		if !doc.Editable() {
			return ErrNotEditable
		}
		doc.Header = header
		doc.Body = body
		doc.Placeholders = placeholders.Merge(placeholders.Extract(doc.Source()), doc.Placeholders)
		return nil
	})
}

// UpdatePlaceholders replaces placeholders by name. Names not yet known are
// added; placeholders not mentioned are left alone.
func (s *Service) UpdatePlaceholders(ctx context.Context, documentID string, updates []placeholders.Placeholder) (Document, error) {
	if err := placeholders.ValidateNames(updates); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.Repo.Update(ctx, documentID, func(doc *Document) error {
		if !doc.Editable() {
			return ErrNotEditable
		}
		next := overlay(doc.Placeholders, updates)
		if err := validateValues(next); err != nil {
			return err
		}
		doc.Placeholders = next
		return nil
	})
}

// RemovePlaceholder deletes a placeholder that the body no longer references.
func (s *Service) RemovePlaceholder(ctx context.Context, documentID, name string) (Document, error) {
	return s.Repo.Update(ctx, documentID, func(doc *Document) error {
		if !doc.Editable() {
			return ErrNotEditable
		}
		if _, ok := placeholders.Find(doc.Placeholders, name); !ok {
			return ErrNotFound
		}
		if placeholders.Referenced(doc.Source(), doc.Placeholders)[name] {
			return fmt.Errorf("%w: placeholder %s is still referenced in the document", ErrInvalidInput, name)
		}
		kept := make([]placeholders.Placeholder, 0, len(doc.Placeholders)-1)
		for _, p := range doc.Placeholders {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		doc.Placeholders = kept
		return nil
	})
}

// Preview renders the current substituted document.
func (s *Service) Preview(ctx context.Context, documentID string) ([]byte, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.Renderer.Render(ctx, doc.Content())
}

// Audit returns the document's tracking events in receipt order.
func (s *Service) Audit(ctx context.Context, documentID string) ([]TrackingEvent, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return doc.AuditTrail.Entries(), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func overlay(base, updates []placeholders.Placeholder) []placeholders.Placeholder {
	out := make([]placeholders.Placeholder, 0, len(base)+len(updates))
	index := make(map[string]int, len(base))
	for _, p := range base {
		index[p.Name] = len(out)
		out = append(out, p.Clone())
	}
	for _, u := range updates {
		if i, ok := index[u.Name]; ok {
			out[i] = u.Clone()
			continue
		}
		index[u.Name] = len(out)
		out = append(out, u.Clone())
	}
	return out
}

func validateValues(ps []placeholders.Placeholder) error {
	var errs []*placeholders.ValueError
	for _, p := range ps {
		if err := placeholders.ValidateValue(p); err != nil {
			var ve *placeholders.ValueError
			if errors.As(err, &ve) {
				errs = append(errs, ve)
				continue
			}
			errs = append(errs, &placeholders.ValueError{Name: p.Name, Reason: err.Error()})
		}
	}
	if len(errs) > 0 {
		return &InvalidValuesError{Errors: errs}
	}
	return nil
}
