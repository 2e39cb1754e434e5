package signing

import (
	"errors"
	"testing"
	"time"
)

func TestParseWebhook(t *testing.T) {
	raw := []byte(`{
		"event": {"type": "document_signed", "time": 1717243200.5, "related_signer": {"email": "alice@example.com", "name": "Alice"}},
		"data": {"object": {"id": "prov-1", "status": "pending"}}
	}`)

	ev, err := ParseWebhook(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != EventDocumentSigned || ev.ProviderDocumentID != "prov-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	want := time.Unix(1717243200, 500_000_000).UTC()
	if !ev.Time.Equal(want) {
		t.Fatalf("expected time %s, got %s", want, ev.Time)
	}
	if ev.SignerEmail != "alice@example.com" || ev.SignerName != "Alice" {
		t.Fatalf("unexpected signer: %+v", ev)
	}
	if len(ev.Raw) == 0 || ev.Raw[0] != '{' {
		t.Fatalf("raw payload not kept: %q", ev.Raw)
	}
}

func TestParseWebhookWithoutSignerOrTime(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"event":{"type":"document_expired"},"data":{"object":{"id":"prov-2"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ev.Time.IsZero() || ev.SignerEmail != "" {
		t.Fatalf("unexpected optional fields: %+v", ev)
	}
}

func TestParseWebhookRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"event":`,
		"missing type": `{"event":{"time":1},"data":{"object":{"id":"p"}}}`,
		"missing id":   `{"event":{"type":"document_signed"},"data":{"object":{}}}`,
		"bad time":     `{"event":{"type":"document_signed","time":-5},"data":{"object":{"id":"p"}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(body))
			if !errors.Is(err, ErrMalformedWebhook) {
				t.Fatalf("expected ErrMalformedWebhook, got %v", err)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":{"type":"document_signed"}}`)
	sig := SignBody("s3cret", body)

	if !VerifySignature("s3cret", body, sig) {
		t.Fatal("expected signature to verify")
	}
	if !VerifySignature("s3cret", body, "sha256="+sig) {
		t.Fatal("expected prefixed signature to verify")
	}
	if VerifySignature("other", body, sig) {
		t.Fatal("wrong secret must not verify")
	}
	if VerifySignature("s3cret", append(body, ' '), sig) {
		t.Fatal("modified body must not verify")
	}
	if VerifySignature("s3cret", body, "zz") || VerifySignature("s3cret", body, "") {
		t.Fatal("garbage signature must not verify")
	}
}
