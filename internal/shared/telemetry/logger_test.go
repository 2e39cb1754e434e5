package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestWriteEmitsJSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Warn("artifact.fetch_failed", map[string]any{
		"document_id": "doc-1",
		"err":         errors.New("timeout"),
	})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["level"] != "WARN" || line["msg"] != "artifact.fetch_failed" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["document_id"] != "doc-1" || line["err"] != "timeout" {
		t.Fatalf("fields missing: %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts field: %v", line)
	}
}
