package signing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/shared/server/respond"
	"signflow-backend/internal/signing/provider"
)

const testSecret = "whsec_test"

func newRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	h := NewHandler(f.svc, f.proc, testSecret)
	h.RegisterRoutes(api)
	h.RegisterWebhook(api)
	(&ArtifactHandler{Store: f.store}).RegisterRoutes(api)
	return r
}

func post(t *testing.T, r http.Handler, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func signed(body []byte) map[string]string {
	return map[string]string{SignatureHeader: SignBody(testSecret, body)}
}

func TestDispatchEndpoint(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")
	router := newRouter(t, f)

	body, _ := json.Marshal(map[string]any{"signerEmails": bothEmails()})
	resp := post(t, router, "/api/v1/documents/doc-1/dispatch", body, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Status != documents.StatusPendingSignature || doc.SigningRecord == nil {
		t.Fatalf("unexpected document: %+v", doc)
	}

	resp = post(t, router, "/api/v1/documents/doc-1/dispatch", body, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second dispatch, got %d", resp.Code)
	}
}

func TestDispatchEndpointValidation(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")
	router := newRouter(t, f)

	body, _ := json.Marshal(map[string]any{"signerEmails": map[string]string{"PARTY_A": aliceEmail}})
	resp := post(t, router, "/api/v1/documents/doc-1/dispatch", body, nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	errBody := decodeError(t, resp)
	fields, ok := errBody.Details.([]any)
	if !ok || len(fields) != 1 {
		t.Fatalf("expected one field error, got %#v", errBody.Details)
	}

	resp = post(t, router, "/api/v1/documents/missing/dispatch", body, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = post(t, router, "/api/v1/documents/doc-1/dispatch", []byte("{"), nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDispatchEndpointProviderError(t *testing.T) {
	f := newFixture(t)
	f.createDraft(t, "doc-1")
	f.sandbox.CreateErr = &provider.ProviderError{StatusCode: 400, Detail: "file_url unreachable"}
	router := newRouter(t, f)

	body, _ := json.Marshal(map[string]any{"signerEmails": bothEmails()})
	resp := post(t, router, "/api/v1/documents/doc-1/dispatch", body, nil)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	errBody := decodeError(t, resp)
	details, _ := errBody.Details.(map[string]any)
	if details["detail"] != "file_url unreachable" || details["statusCode"] != float64(400) {
		t.Fatalf("provider detail not surfaced: %#v", errBody.Details)
	}
}

func TestWebhookEndpointStatusCodes(t *testing.T) {
	f := newFixture(t)
	f.dispatched(t, "doc-1")
	router := newRouter(t, f)

	event := webhookBody(t, EventDocumentSigned, "sandbox-1", aliceEmail)

	resp := post(t, router, "/api/v1/webhooks/signing", event, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", resp.Code)
	}
	resp = post(t, router, "/api/v1/webhooks/signing", event, map[string]string{SignatureHeader: SignBody("wrong", event)})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad signature, got %d", resp.Code)
	}

	malformed := []byte(`{"event":{"type":""}}`)
	resp = post(t, router, "/api/v1/webhooks/signing", malformed, signed(malformed))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", resp.Code)
	}

	unknown := webhookBody(t, EventDocumentSigned, "other-provider-id", aliceEmail)
	resp = post(t, router, "/api/v1/webhooks/signing", unknown, signed(unknown))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown document, got %d", resp.Code)
	}

	future := webhookBody(t, "document_forwarded", "sandbox-1", "")
	resp = post(t, router, "/api/v1/webhooks/signing", future, signed(future))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown event, got %d", resp.Code)
	}

	resp = post(t, router, "/api/v1/webhooks/signing", event, signed(event))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result WebhookResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Outcome != OutcomeProcessed || result.DocumentID != "doc-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSignedArtifactEndpoints(t *testing.T) {
	f := newFixture(t)
	f.dispatched(t, "doc-1")
	router := newRouter(t, f)

	resp := get(router, "/api/v1/documents/doc-1/signed-artifact")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 before completion, got %d", resp.Code)
	}

	f.sandbox.DownloadErr = provider.ErrNotConfigured
	completed := webhookBody(t, EventDocumentCompleted, "sandbox-1", "")
	resp = post(t, router, "/api/v1/webhooks/signing", completed, signed(completed))
	if resp.Code != http.StatusOK {
		t.Fatalf("fetch failures must not fail the webhook, got %d", resp.Code)
	}

	resp = get(router, "/api/v1/documents/doc-1/signed-artifact")
	if resp.Code != http.StatusConflict || decodeError(t, resp).Code != "artifact_pending" {
		t.Fatalf("expected artifact_pending, got %d", resp.Code)
	}

	resp = post(t, router, "/api/v1/documents/doc-1/signed-artifact/retrieve", nil, nil)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 while provider fails, got %d", resp.Code)
	}

	f.sandbox.DownloadErr = nil
	f.sandbox.SetCompletedArtifact("sandbox-1", f.signedPDF(t))
	resp = post(t, router, "/api/v1/documents/doc-1/signed-artifact/retrieve", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = get(router, "/api/v1/documents/doc-1/signed-artifact")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != `attachment; filename="mutual-agreement-signed.pdf"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestArtifactRouteServesStoredObjects(t *testing.T) {
	f := newFixture(t)
	doc := f.dispatched(t, "doc-1")
	router := newRouter(t, f)

	resp := get(router, "/api/v1/artifacts/"+doc.SigningRecord.OriginalArtifactURL)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("expected pdf bytes")
	}

	for _, path := range []string{
		"/api/v1/artifacts/documents/doc-1/missing.pdf",
		"/api/v1/artifacts/other/file.pdf",
		"/api/v1/artifacts/documents/../../etc/passwd",
	} {
		if resp := get(router, path); resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}
