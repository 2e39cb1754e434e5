package signing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/storage/object"
	"signflow-backend/internal/signing/provider"
)

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, render.Content) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestSendDispatchesDraft(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")

	doc, err := f.svc.Send(context.Background(), "doc-1", SendInput{
		SignerEmails:      bothEmails(),
		AdditionalSigners: []AdditionalSigner{{Name: "Carol Counsel", Email: "carol@example.com"}},
	})
	require.NoError(t, err)

	require.Equal(t, documents.StatusPendingSignature, doc.Status)
	require.NotNil(t, doc.SigningRecord)
	require.Equal(t, "sandbox-1", doc.SigningRecord.ProviderDocumentID)
	require.Len(t, doc.SigningRecord.Signers, 3)
	for _, s := range doc.SigningRecord.Signers {
		require.Equal(t, documents.SignerPending, s.Status)
	}
	require.Equal(t, []string{documents.EventDocumentSent}, eventTypes(doc))

	key := doc.SigningRecord.OriginalArtifactURL
	require.True(t, strings.HasPrefix(key, "documents/doc-1/original-"), key)
	stored, err := object.ReadAll(context.Background(), f.store, key)
	require.NoError(t, err)
	_, err = render.Inspect(stored)
	require.NoError(t, err)

	created := f.sandbox.Created()
	require.Len(t, created, 1)
	require.Equal(t, "http://localhost:8080/api/v1/artifacts/"+key, created[0].FileURL)
	require.Equal(t, "Mutual Agreement", created[0].Name)
	require.Len(t, created[0].Recipients, 3)

	persisted, err := f.repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPendingSignature, persisted.Status)
}

func TestSendMissingEmailMakesNoProviderCall(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")

	_, err := f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: map[string]string{"PARTY_A": aliceEmail}})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	require.Empty(t, f.sandbox.Created())
	doc, err := f.repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, documents.StatusDraft, doc.Status)
	require.Nil(t, doc.SigningRecord)
}

func TestSendProviderRejectionLeavesDraft(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")
	f.sandbox.CreateErr = &provider.ProviderError{StatusCode: 422, Detail: `{"error":"invalid recipient"}`}

	_, err := f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: bothEmails()})

	var perr *SigningProviderError
	require.True(t, errors.As(err, &perr), "expected SigningProviderError, got %v", err)
	require.Equal(t, 422, perr.StatusCode)
	require.Contains(t, perr.Detail, "invalid recipient")

	doc, err := f.repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, documents.StatusDraft, doc.Status)
	require.Equal(t, 0, doc.AuditTrail.Len())

	// the user can retry once the provider accepts
	f.sandbox.CreateErr = nil
	_, err = f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: bothEmails()})
	require.NoError(t, err)
}

func TestSendRenderFailureAbortsBeforeProvider(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")
	f.svc.Renderer = failingRenderer{}

	_, err := f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: bothEmails()})

	var renderErr *render.ArtifactRenderError
	require.True(t, errors.As(err, &renderErr), "expected ArtifactRenderError, got %v", err)
	require.Empty(t, f.sandbox.Created())
}

func TestSendRejectsSecondDispatch(t *testing.T) {
	f := newFixture(t)
	f.dispatched(t, "doc-1")

	_, err := f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: bothEmails()})
	require.ErrorIs(t, err, ErrAlreadyDispatched)
	require.Len(t, f.sandbox.Created(), 1)
}

func TestSendUnknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), "missing", SendInput{SignerEmails: bothEmails()})
	require.ErrorIs(t, err, documents.ErrNotFound)
}

func TestSignedArtifactStates(t *testing.T) {
	f := newFixture(t)
	f.dispatched(t, "doc-1")

	_, _, err := f.svc.SignedArtifact(context.Background(), "doc-1")
	require.ErrorIs(t, err, ErrNotCompleted)

	f.sandbox.DownloadErr = errors.New("provider unavailable")
	_, err = f.proc.HandleWebhook(context.Background(), webhookBody(t, EventDocumentCompleted, "sandbox-1", ""))
	require.NoError(t, err)

	_, _, err = f.svc.SignedArtifact(context.Background(), "doc-1")
	require.ErrorIs(t, err, ErrArtifactPending)

	f.sandbox.DownloadErr = nil
	f.sandbox.SetCompletedArtifact("sandbox-1", f.signedPDF(t))
	_, err = f.proc.RetrieveSignedArtifact(context.Background(), "doc-1")
	require.NoError(t, err)

	_, data, err := f.svc.SignedArtifact(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, f.signedPDF(t), data)
}

func TestSendRejectsSignerNameTheRendererCannotEncode(t *testing.T) {
	f := newFixture(t)
	doc := agreement("doc-1")
	doc.Placeholders[0].Value = "Łukasz Żółć"
	require.NoError(t, f.repo.Create(context.Background(), doc))

	_, err := f.svc.Send(context.Background(), "doc-1", SendInput{SignerEmails: bothEmails()})

	var rerr *render.ArtifactRenderError
	require.True(t, errors.As(err, &rerr), "expected ArtifactRenderError, got %v", err)
	require.Contains(t, err.Error(), "Ł")
	require.Empty(t, f.sandbox.Created())

	stored, err := f.repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, documents.StatusDraft, stored.Status)
	require.Nil(t, stored.SigningRecord)
}
