package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Signature"

type webhookPayload struct {
	Event struct {
		Type          string      `json:"type"`
		Time          json.Number `json:"time"`
		RelatedSigner *struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"related_signer"`
	} `json:"event"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// ParseWebhook decodes a provider delivery. Only the event type and the
// provider document id are required; unknown fields are ignored.
func ParseWebhook(raw []byte) (ProviderEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p webhookPayload
	if err := dec.Decode(&p); err != nil {
		return ProviderEvent{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	ev := ProviderEvent{
		Type:               strings.TrimSpace(p.Event.Type),
		ProviderDocumentID: strings.TrimSpace(p.Data.Object.ID),
		Raw:                compactJSON(raw),
	}
	if ev.Type == "" {
		return ProviderEvent{}, fmt.Errorf("%w: event.type is required", ErrMalformedWebhook)
	}
	if ev.ProviderDocumentID == "" {
		return ProviderEvent{}, fmt.Errorf("%w: data.object.id is required", ErrMalformedWebhook)
	}
	if p.Event.Time != "" {
		secs, err := p.Event.Time.Float64()
		if err != nil || secs < 0 || math.IsInf(secs, 0) {
			return ProviderEvent{}, fmt.Errorf("%w: event.time must be unix seconds", ErrMalformedWebhook)
		}
		whole, frac := math.Modf(secs)
		ev.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
	}
	if p.Event.RelatedSigner != nil {
		ev.SignerEmail = strings.TrimSpace(p.Event.RelatedSigner.Email)
		ev.SignerName = strings.TrimSpace(p.Event.RelatedSigner.Name)
	}
	return ev, nil
}

func compactJSON(raw []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return buf.Bytes()
}

// SignBody returns the signature a provider sends for body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC of body. A "sha256="
// prefix is accepted.
func VerifySignature(secret string, body []byte, header string) bool {
	sig := strings.TrimSpace(header)
	if sig == "" || secret == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
