package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"signflow-backend/internal/placeholders"
	"signflow-backend/internal/render"
	"signflow-backend/internal/templates"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	catalog, err := templates.Load()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	return &Service{
		Repo:      NewMemoryRepo(),
		Templates: catalog,
		Renderer:  render.NewPDFRenderer("test"),
		Now:       func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestCreateDraftExtractsPlaceholders(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.CreateDraft(context.Background(), CreateInput{
		Title:  "Offer",
		Header: "{{COMPANY}}",
		Body:   "Dear {{CANDIDATE}}, welcome to {{COMPANY}}.",
		Placeholders: []placeholders.Placeholder{
			{Name: "CANDIDATE", Value: "Jane Doe", Signer: true, Format: placeholders.TextFormat{}},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if doc.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", doc.Status)
	}
	if len(doc.Placeholders) != 2 || doc.Placeholders[0].Name != "COMPANY" || doc.Placeholders[1].Name != "CANDIDATE" {
		t.Fatalf("unexpected placeholders: %+v", doc.Placeholders)
	}
	if !doc.Placeholders[1].Signer || doc.Placeholders[1].Value != "Jane Doe" {
		t.Fatalf("caller metadata lost: %+v", doc.Placeholders[1])
	}

	stored, err := svc.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Title != "Offer" {
		t.Fatalf("expected stored title Offer, got %q", stored.Title)
	}
}

func TestCreateDraftRejectsBadValues(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateDraft(context.Background(), CreateInput{
		Title: "Invoice",
		Body:  "Pay {{AMOUNT}} by {{DUE}}",
		Placeholders: []placeholders.Placeholder{
			{Name: "AMOUNT", Value: "lots", Format: placeholders.CurrencyFormat{Code: "USD"}},
			{Name: "DUE", Value: "someday", Format: placeholders.DateFormat{}},
		},
	})
	var valuesErr *InvalidValuesError
	if !errors.As(err, &valuesErr) {
		t.Fatalf("expected InvalidValuesError, got %v", err)
	}
	if len(valuesErr.Errors) != 2 {
		t.Fatalf("expected 2 value errors, got %d", len(valuesErr.Errors))
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected error to wrap ErrInvalidInput")
	}
}

func TestCreateFromTemplateAppliesDefaultsAndOverrides(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.CreateFromTemplate(context.Background(), CreateInput{
		TemplateID: "mutual-nda",
		Placeholders: []placeholders.Placeholder{
			{Name: "PARTY_A", Value: "Acme Corp", Signer: true, Format: placeholders.TextFormat{}},
		},
	})
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}
	if doc.Title != "Mutual Non-Disclosure Agreement" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	partyA, ok := placeholders.Find(doc.Placeholders, "PARTY_A")
	if !ok || partyA.Value != "Acme Corp" || !partyA.Signer {
		t.Fatalf("override not applied: %+v", partyA)
	}
	partyB, ok := placeholders.Find(doc.Placeholders, "PARTY_B")
	if !ok || !partyB.Signer || partyB.Position == nil {
		t.Fatalf("template defaults missing for PARTY_B: %+v", partyB)
	}
	if _, ok := placeholders.Find(doc.Placeholders, "COMPANY_NAME"); !ok {
		t.Fatalf("header placeholder not extracted")
	}

	_, err = svc.CreateFromTemplate(context.Background(), CreateInput{TemplateID: "nope"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown template, got %v", err)
	}
}

func TestUpdateContentKeepsCapturedValues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, CreateInput{
		Title: "Letter",
		Body:  "Hello {{NAME}}",
		Placeholders: []placeholders.Placeholder{
			{Name: "NAME", Value: "Sam", Format: placeholders.TextFormat{}},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	updated, err := svc.UpdateContent(ctx, doc.ID, "", "Hi {{CITY}} resident")
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if len(updated.Placeholders) != 2 || updated.Placeholders[0].Name != "CITY" {
		t.Fatalf("unexpected placeholders: %+v", updated.Placeholders)
	}
	name, ok := placeholders.Find(updated.Placeholders, "NAME")
	if !ok || name.Value != "Sam" {
		t.Fatalf("orphaned placeholder lost its value: %+v", name)
	}

	// NAME is no longer referenced and can be removed.
	trimmed, err := svc.RemovePlaceholder(ctx, doc.ID, "NAME")
	if err != nil {
		t.Fatalf("RemovePlaceholder: %v", err)
	}
	if len(trimmed.Placeholders) != 1 {
		t.Fatalf("expected 1 placeholder, got %+v", trimmed.Placeholders)
	}
	if _, err := svc.RemovePlaceholder(ctx, doc.ID, "CITY"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected referenced placeholder removal to fail, got %v", err)
	}
}

func TestUpdatePlaceholdersValidatesAndRejectsNonDraft(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, CreateInput{Title: "T", Body: "Contact {{EMAIL}}"})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	_, err = svc.UpdatePlaceholders(ctx, doc.ID, []placeholders.Placeholder{
		{Name: "EMAIL", Value: "not-an-email", Format: placeholders.EmailFormat{}},
	})
	var valuesErr *InvalidValuesError
	if !errors.As(err, &valuesErr) {
		t.Fatalf("expected InvalidValuesError, got %v", err)
	}

	updated, err := svc.UpdatePlaceholders(ctx, doc.ID, []placeholders.Placeholder{
		{Name: "EMAIL", Value: "ops@example.com", Format: placeholders.EmailFormat{}},
	})
	if err != nil {
		t.Fatalf("UpdatePlaceholders: %v", err)
	}
	if updated.Placeholders[0].Value != "ops@example.com" {
		t.Fatalf("value not stored: %+v", updated.Placeholders[0])
	}

	if _, err := svc.Repo.Update(ctx, doc.ID, func(d *Document) error {
		d.Status = StatusPendingSignature
		return nil
	}); err != nil {
		t.Fatalf("force status: %v", err)
	}
	_, err = svc.UpdatePlaceholders(ctx, doc.ID, []placeholders.Placeholder{
		{Name: "EMAIL", Value: "other@example.com", Format: placeholders.EmailFormat{}},
	})
	if !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
	if _, err := svc.UpdateContent(ctx, doc.ID, "", "new body"); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable from UpdateContent, got %v", err)
	}
}

func TestPreviewRendersPDF(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, CreateInput{Title: "T", Body: "Signed by {{NAME}}"})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	data, err := svc.Preview(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if pages, err := render.Inspect(data); err != nil || pages != 1 {
		t.Fatalf("expected a 1 page PDF, got pages=%d err=%v", pages, err)
	}
}

func TestMemoryRepoUpdateIsIsolatedFromCallers(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	doc := Document{ID: "d1", Title: "T", Body: "b", Status: StatusDraft}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := repo.Update(ctx, "d1", func(d *Document) error {
		d.Title = "changed"
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected update error")
	}
	got, _ := repo.Get(ctx, "d1")
	if got.Title != "T" {
		t.Fatalf("aborted update leaked: %q", got.Title)
	}

	if err := repo.AppendAuditEntry(ctx, "d1", TrackingEvent{EventType: "note"}); err != nil {
		t.Fatalf("AppendAuditEntry: %v", err)
	}
	got, _ = repo.Get(ctx, "d1")
	got.AuditTrail.Append(TrackingEvent{EventType: "local"})
	again, _ := repo.Get(ctx, "d1")
	if again.AuditTrail.Len() != 1 {
		t.Fatalf("expected stored trail to stay at 1 entry, got %d", again.AuditTrail.Len())
	}

	if err := repo.AppendAuditEntry(ctx, "missing", TrackingEvent{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemovePlaceholderOnlyDropsOrphans(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDraft(ctx, CreateInput{
		Title: "Offer",
		Body:  "Dear {{CANDIDATE}}.",
		Placeholders: []placeholders.Placeholder{
			{Name: "OLD_START_DATE", Format: placeholders.DateFormat{}},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if len(doc.Placeholders) != 2 {
		t.Fatalf("expected orphan to survive the merge, got %+v", doc.Placeholders)
	}

	if _, err := svc.RemovePlaceholder(ctx, doc.ID, "CANDIDATE"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a referenced name, got %v", err)
	}
	if _, err := svc.RemovePlaceholder(ctx, doc.ID, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown name, got %v", err)
	}

	updated, err := svc.RemovePlaceholder(ctx, doc.ID, "OLD_START_DATE")
	if err != nil {
		t.Fatalf("RemovePlaceholder: %v", err)
	}
	if len(updated.Placeholders) != 1 || updated.Placeholders[0].Name != "CANDIDATE" {
		t.Fatalf("unexpected placeholders after removal: %+v", updated.Placeholders)
	}
	stored, _ := svc.Get(ctx, doc.ID)
	if _, ok := placeholders.Find(stored.Placeholders, "OLD_START_DATE"); ok {
		t.Fatalf("removal was not persisted")
	}

	if _, err := svc.Repo.Update(ctx, doc.ID, func(d *Document) error {
		d.Status = StatusPendingSignature
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.RemovePlaceholder(ctx, doc.ID, "CANDIDATE"); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable once dispatched, got %v", err)
	}
}

func TestMemoryRepoUpdateRejectsAuditRewrite(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	sentAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{ID: "d1", Title: "T", Body: "b", Status: StatusPendingSignature}
	doc.AuditTrail.Append(TrackingEvent{EventType: EventDocumentSent, Timestamp: sentAt, ReceivedAt: sentAt})
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := repo.Update(ctx, "d1", func(d *Document) error {
		d.AuditTrail = NewAuditTrail(
			TrackingEvent{EventType: "forged", Timestamp: sentAt, ReceivedAt: sentAt},
			TrackingEvent{EventType: "x"},
		)
		return nil
	})
	if !errors.Is(err, ErrAuditRewritten) {
		t.Fatalf("expected ErrAuditRewritten for an altered prefix, got %v", err)
	}

	_, err = repo.Update(ctx, "d1", func(d *Document) error {
		d.AuditTrail = NewAuditTrail(
			TrackingEvent{EventType: EventDocumentSent, Timestamp: sentAt, ReceivedAt: sentAt, RawPayload: []byte(`{"edited":true}`)},
		)
		return nil
	})
	if !errors.Is(err, ErrAuditRewritten) {
		t.Fatalf("expected ErrAuditRewritten for an edited payload, got %v", err)
	}

	got, _ := repo.Get(ctx, "d1")
	if first, _ := got.AuditTrail.Last(); got.AuditTrail.Len() != 1 || first.EventType != EventDocumentSent {
		t.Fatalf("stored trail changed: %+v", got.AuditTrail.Entries())
	}

	updated, err := repo.Update(ctx, "d1", func(d *Document) error {
		d.AuditTrail.Append(TrackingEvent{EventType: "document_viewed", ReceivedAt: sentAt})
		return nil
	})
	if err != nil {
		t.Fatalf("appending must still be allowed: %v", err)
	}
	if updated.AuditTrail.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", updated.AuditTrail.Len())
	}
}
