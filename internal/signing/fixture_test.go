package signing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/placeholders"
	"signflow-backend/internal/queue"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/lock"
	localstore "signflow-backend/internal/shared/storage/object/local"
	"signflow-backend/internal/signing/provider"
)

const (
	aliceEmail = "alice@example.com"
	bobEmail   = "bob@example.com"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo     *documents.MemoryRepo
	sandbox  *provider.Sandbox
	store    *localstore.Store
	queue    *queue.MemoryClient
	renderer render.Renderer
	svc      *Service
	proc     *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     documents.NewMemoryRepo(),
		sandbox:  provider.NewSandbox(),
		store:    localstore.New(t.TempDir(), "http://localhost:8080"),
		queue:    queue.NewMemoryClient(),
		renderer: render.NewPDFRenderer("test"),
	}
	now := func() time.Time { return fixedNow }
	f.svc = &Service{
		Repo:        f.repo,
		Renderer:    f.renderer,
		Store:       f.store,
		Coordinator: &Coordinator{Provider: f.sandbox, TestMode: true, Now: now},
		Now:         now,
	}
	f.proc = &Processor{
		Repo:     f.repo,
		Provider: f.sandbox,
		Store:    f.store,
		Locker:   lock.NewMemoryLocker(),
		Queue:    f.queue,
		Now:      now,
	}
	return f
}

// agreement is a two-party draft; only PARTY_A has a placed signature field.
func agreement(id string) documents.Document {
	return documents.Document{
		ID:     id,
		Title:  "Mutual Agreement",
		Body:   "Agreed by {{PARTY_A}} and {{PARTY_B}}",
		Status: documents.StatusDraft,
		Placeholders: []placeholders.Placeholder{
			{
				Name:     "PARTY_A",
				Value:    "Alice Able",
				Format:   placeholders.TextFormat{},
				Signer:   true,
				Position: &placeholders.Position{Page: 1, X: 72, Y: 640, Width: 180, Height: 40},
			},
			{Name: "PARTY_B", Value: "Bob Baker", Format: placeholders.TextFormat{}, Signer: true},
		},
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func bothEmails() map[string]string {
	return map[string]string{"PARTY_A": aliceEmail, "PARTY_B": bobEmail}
}

func (f *fixture) createDraft(t *testing.T, id string) documents.Document {
	t.Helper()
	doc := agreement(id)
	if err := f.repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return doc
}

func (f *fixture) dispatched(t *testing.T, id string) documents.Document {
	t.Helper()
	f.createDraft(t, id)
	doc, err := f.svc.Send(context.Background(), id, SendInput{SignerEmails: bothEmails()})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return doc
}

func (f *fixture) signedPDF(t *testing.T) []byte {
	t.Helper()
	data, err := f.renderer.Render(context.Background(), render.Content{Title: "Signed", Body: "Signed by everyone."})
	if err != nil {
		t.Fatalf("render signed pdf: %v", err)
	}
	return data
}

func webhookBody(t *testing.T, eventType, providerID, signerEmail string) []byte {
	t.Helper()
	event := map[string]any{"type": eventType, "time": 1717243200}
	if signerEmail != "" {
		event["related_signer"] = map[string]any{"email": signerEmail}
	}
	raw, err := json.Marshal(map[string]any{
		"event": event,
		"data":  map[string]any{"object": map[string]any{"id": providerID}},
	})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return raw
}

func signerStatus(t *testing.T, doc documents.Document, email string) documents.SignerStatus {
	t.Helper()
	for _, s := range doc.Signers() {
		if s.Email == email {
			return s.Status
		}
	}
	t.Fatalf("no signer %s in %+v", email, doc.Signers())
	return ""
}

func eventTypes(doc documents.Document) []string {
	entries := doc.AuditTrail.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EventType)
	}
	return out
}
